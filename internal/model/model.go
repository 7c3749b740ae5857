// Package model содержит доменные сущности консоли автомойки.
package model

import (
	"cmp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Названия коллекций хранилища записей.
const (
	CollectionServices         = "services"
	CollectionRedemptions      = "redemptions"
	CollectionPointAdjustments = "pointAdjustments"
	CollectionWorkers          = "workers"
	CollectionExpenses         = "expenses"
)

// Collections перечисляет все коллекции, которые использует консоль.
var Collections = []string{
	CollectionServices,
	CollectionRedemptions,
	CollectionPointAdjustments,
	CollectionWorkers,
	CollectionExpenses,
}

// OrderStatus описывает статус заказа на обслуживание.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in-progress"
	OrderStatusCompleted  OrderStatus = "completed"
)

// OrderStatuses возвращает все статусы в порядке жизненного цикла заказа.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted}
}

// Valid сообщает, является ли статус одним из известных.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusInProgress, OrderStatusCompleted:
		return true
	}
	return false
}

// LineItem - одна услуга в заказе.
type LineItem struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
}

// ServiceOrder описывает визит автомобиля на обслуживание.
type ServiceOrder struct {
	ID            string           `json:"id"`
	VehicleNumber string           `json:"carNumber"`
	CustomerName  string           `json:"name"`
	Phone         string           `json:"phone"`
	CarName       string           `json:"carName,omitempty"`
	Seater        string           `json:"seater,omitempty"`
	Date          Date             `json:"date"`
	Timestamp     time.Time        `json:"timestamp"`
	LineItems     []LineItem       `json:"services"`
	OtherCharges  decimal.Decimal  `json:"otherCharges"`
	Status        OrderStatus      `json:"status"`
	PaymentMode   string           `json:"paymentMode,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	TotalAmount   *decimal.Decimal `json:"totalAmount,omitempty"`
}

// NewestOrderFirst сравнивает заказы по дате, затем по времени создания и идентификатору, от новых к старым.
// Им пользуются все представления, которым нужен последний визит автомобиля.
func NewestOrderFirst(a, b ServiceOrder) int {
	return cmp.Or(
		b.Date.Compare(a.Date),
		b.Timestamp.Compare(a.Timestamp),
		strings.Compare(b.ID, a.ID),
	)
}

// LineItemsTotal возвращает сумму услуг заказа с учётом прочих начислений.
func (o ServiceOrder) LineItemsTotal() decimal.Decimal {
	total := o.OtherCharges
	for _, item := range o.LineItems {
		total = total.Add(item.Amount)
	}
	return total
}

// EffectiveTotal возвращает сохранённую сумму заказа, а при её отсутствии - вычисленную.
func (o ServiceOrder) EffectiveTotal() decimal.Decimal {
	if o.TotalAmount != nil {
		return *o.TotalAmount
	}
	return o.LineItemsTotal()
}

// VehicleKey приводит номер автомобиля к ключу группировки клиентов.
func VehicleKey(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// RedemptionEvent фиксирует списание баллов за бесплатную услугу.
type RedemptionEvent struct {
	ID             string    `json:"id,omitempty"`
	VehicleNumber  string    `json:"carNumber"`
	CustomerName   string    `json:"name,omitempty"`
	PointsRedeemed int64     `json:"pointsRedeemed"`
	Date           time.Time `json:"date"`
	PreviousPoints int64     `json:"previousPoints"`
	NewPoints      int64     `json:"newPoints"`
	PreviousTier   Tier      `json:"previousLevel"`
	NewTier        Tier      `json:"newLevel"`
}

// PointAdjustment - ручная корректировка баллов клиента.
type PointAdjustment struct {
	ID            string    `json:"id,omitempty"`
	VehicleNumber string    `json:"carNumber"`
	Delta         int64     `json:"delta"`
	Note          string    `json:"note,omitempty"`
	Date          time.Time `json:"date"`
}

// Tier - уровень программы лояльности.
type Tier string

const (
	TierRegular  Tier = "Regular"
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
)

// LoyaltyAccount - вычисляемое состояние клиента в программе лояльности.
type LoyaltyAccount struct {
	VehicleNumber          string            `json:"carNumber"`
	Name                   string            `json:"name"`
	Phone                  string            `json:"phone"`
	VisitCount             int               `json:"visitCount"`
	RedemptionCount        int               `json:"redemptionCount"`
	TotalSpent             decimal.Decimal   `json:"totalSpent"`
	Points                 int64             `json:"points"`
	Tier                   Tier              `json:"tier"`
	PointsExpiry           time.Time         `json:"pointsExpiry"`
	PointsExpired          bool              `json:"pointsExpired"`
	EligibleForFreeService bool              `json:"eligibleForFreeService"`
	Orders                 []ServiceOrder    `json:"services"`
	Redemptions            []RedemptionEvent `json:"redemptionHistory"`
	Adjustments            []PointAdjustment `json:"adjustments,omitempty"`
}

// DisplayPoints возвращает баланс баллов, не опускающийся ниже нуля.
func (a LoyaltyAccount) DisplayPoints() int64 {
	if a.Points < 0 {
		return 0
	}
	return a.Points
}

// EffectiveVisits возвращает число визитов за вычетом использованных бесплатных услуг.
func (a LoyaltyAccount) EffectiveVisits() int {
	return a.VisitCount - a.RedemptionCount
}

// AttendanceStatus - отметка о посещении за день.
type AttendanceStatus string

const (
	AttendanceNone    AttendanceStatus = "none"
	AttendancePresent AttendanceStatus = "present"
	AttendanceAbsent  AttendanceStatus = "absent"
)

// Valid сообщает, является ли отметка одной из известных.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceNone, AttendancePresent, AttendanceAbsent:
		return true
	}
	return false
}

// Next возвращает следующую отметку в цикле none → present → absent → none.
func (s AttendanceStatus) Next() AttendanceStatus {
	switch s {
	case AttendanceNone:
		return AttendancePresent
	case AttendancePresent:
		return AttendanceAbsent
	default:
		return AttendanceNone
	}
}

// MonthAttendance хранит отметки по дням месяца.
type MonthAttendance map[int]AttendanceStatus

// Advance - аванс, выданный работнику.
type Advance struct {
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
	Note   string          `json:"note"`
}

// Worker описывает сотрудника мойки.
type Worker struct {
	ID         string                       `json:"id"`
	Name       string                       `json:"name"`
	Age        int                          `json:"age,omitempty"`
	Phone      string                       `json:"phone"`
	Role       string                       `json:"role"`
	Category   string                       `json:"category"`
	Salary     decimal.Decimal              `json:"salary"`
	JoinDate   Date                         `json:"joinDate"`
	Note       string                       `json:"note,omitempty"`
	CreatedAt  time.Time                    `json:"createdAt"`
	Attendance map[MonthKey]MonthAttendance `json:"attendance"`
	Advances   []Advance                    `json:"advances"`
}

// PayrollSummary - расчёт выплаты работнику за месяц.
type PayrollSummary struct {
	WorkerID      string          `json:"workerId"`
	Month         MonthKey        `json:"month"`
	DaysInMonth   int             `json:"daysInMonth"`
	PresentDays   int             `json:"presentDays"`
	AbsentDays    int             `json:"absentDays"`
	DailyRate     decimal.Decimal `json:"dailyRate"`
	BasePayment   decimal.Decimal `json:"basePayment"`
	TotalAdvances decimal.Decimal `json:"totalAdvances"`
	FinalPayment  decimal.Decimal `json:"finalPayment"`
	Deficit       decimal.Decimal `json:"deficit"`
}

// Expense описывает расход мойки.
type Expense struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	Timestamp   time.Time       `json:"timestamp"`
}
