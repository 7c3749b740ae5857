package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/carwash-console/internal/aggregate"
	"github.com/mmeshcher/carwash-console/internal/export"
	"github.com/mmeshcher/carwash-console/internal/loyalty"
	"github.com/mmeshcher/carwash-console/internal/messaging"
	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/report"
	"github.com/mmeshcher/carwash-console/internal/validation"
)

// LineItemInput - услуга во входных данных заказа. Пустая сумма берётся из прайс-листа.
type LineItemInput struct {
	Type   string `json:"type"`
	Amount Amount `json:"amount"`
}

// OrderInput - данные для создания или изменения заказа.
type OrderInput struct {
	VehicleNumber string            `json:"carNumber"`
	CustomerName  string            `json:"name"`
	Phone         string            `json:"phone"`
	CarName       string            `json:"carName"`
	Seater        string            `json:"seater"`
	Date          string            `json:"date"`
	LineItems     []LineItemInput   `json:"services"`
	OtherCharges  Amount            `json:"otherCharges"`
	Status        model.OrderStatus `json:"status"`
	PaymentMode   string            `json:"paymentMode"`
	Notes         string            `json:"notes"`
}

// OrderFilter ограничивает список заказов.
type OrderFilter struct {
	Search string
	Status model.OrderStatus
	Date   string
}

var paymentModes = []string{"", "cash", "upi", "card"}

// buildOrder проверяет входные данные и заполняет поля заказа, кроме ID и Timestamp.
func (s *Service) buildOrder(in OrderInput, o *model.ServiceOrder) error {
	vehicle := strings.TrimSpace(in.VehicleNumber)
	if vehicle == "" {
		return invalid("carNumber", "is required")
	}
	if !validation.IsValidVehicleNumber(vehicle) {
		return invalid("carNumber", "%q is not a vehicle number", vehicle)
	}
	name := strings.TrimSpace(in.CustomerName)
	if name == "" {
		return invalid("name", "is required")
	}
	phone, ok := validation.NormalizePhone(in.Phone)
	if !ok {
		return invalid("phone", "%q is not a mobile number", in.Phone)
	}
	if in.Seater != "" && in.Seater != "5" && in.Seater != "7" {
		return invalid("seater", "must be 5 or 7")
	}
	date, err := s.parseDate("date", in.Date)
	if err != nil {
		return err
	}
	if strings.TrimSpace(in.Date) == "" && !o.Date.IsZero() {
		date = o.Date
	}

	if len(in.LineItems) == 0 {
		return invalid("services", "at least one service is required")
	}
	items := make([]model.LineItem, 0, len(in.LineItems))
	for i, li := range in.LineItems {
		field := fmt.Sprintf("services[%d]", i)
		kind := strings.TrimSpace(li.Type)
		if kind == "" {
			return invalid(field+".type", "is required")
		}
		var amount decimal.Decimal
		if strings.TrimSpace(string(li.Amount)) == "" {
			if opt, ok := model.LookupService(kind); ok {
				amount = opt.Price(in.Seater)
			}
		} else if amount, err = validation.ParseAmount(string(li.Amount)); err != nil {
			return invalid(field+".amount", "%v", err)
		}
		items = append(items, model.LineItem{Type: kind, Amount: amount})
	}

	other, err := validation.ParseAmount(string(in.OtherCharges))
	if err != nil {
		return invalid("otherCharges", "%v", err)
	}

	status := in.Status
	if status == "" {
		status = model.OrderStatusPending
	}
	if !status.Valid() {
		return invalid("status", "unknown status %q", status)
	}

	mode := strings.ToLower(strings.TrimSpace(in.PaymentMode))
	if !slices.Contains(paymentModes, mode) {
		return invalid("paymentMode", "unknown payment mode %q", in.PaymentMode)
	}

	o.VehicleNumber = model.VehicleKey(vehicle)
	o.CustomerName = name
	o.Phone = phone
	o.CarName = strings.TrimSpace(in.CarName)
	o.Seater = in.Seater
	o.Date = date
	o.LineItems = items
	o.OtherCharges = other
	o.Status = status
	o.PaymentMode = mode
	o.Notes = strings.TrimSpace(in.Notes)

	total := o.LineItemsTotal()
	o.TotalAmount = &total
	return nil
}

// CreateOrder принимает новый заказ.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (model.ServiceOrder, error) {
	var o model.ServiceOrder
	if err := s.buildOrder(in, &o); err != nil {
		return model.ServiceOrder{}, err
	}
	o.Timestamp = s.now()

	id, err := s.repo.Append(ctx, model.CollectionServices, o)
	if err != nil {
		return model.ServiceOrder{}, fmt.Errorf("append order: %w", err)
	}
	o.ID = id
	return o, nil
}

// UpdateOrder заменяет редактируемые поля заказа, сохраняя идентификатор и время создания.
func (s *Service) UpdateOrder(ctx context.Context, id string, in OrderInput) (model.ServiceOrder, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return model.ServiceOrder{}, err
	}
	if err := s.buildOrder(in, &o); err != nil {
		return model.ServiceOrder{}, err
	}
	if err := s.repo.Set(ctx, model.CollectionServices, id, o); err != nil {
		return model.ServiceOrder{}, fmt.Errorf("set order: %w", err)
	}
	return o, nil
}

// SetOrderStatus меняет только статус заказа.
func (s *Service) SetOrderStatus(ctx context.Context, id string, status model.OrderStatus) error {
	if !status.Valid() {
		return invalid("status", "unknown status %q", status)
	}
	if err := s.repo.Update(ctx, model.CollectionServices, id, map[string]any{"status": status}); err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	return nil
}

// DeleteOrder удаляет заказ.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := s.repo.Remove(ctx, model.CollectionServices, id); err != nil {
		return fmt.Errorf("remove order: %w", err)
	}
	return nil
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id string) (model.ServiceOrder, error) {
	o, err := getDoc[model.ServiceOrder](ctx, s.repo, model.CollectionServices, id)
	if err != nil {
		return model.ServiceOrder{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListOrders возвращает заказы от новых к старым.
func (s *Service) ListOrders(ctx context.Context, f OrderFilter) ([]model.ServiceOrder, error) {
	orders, err := listDocs[model.ServiceOrder](ctx, s.repo, model.CollectionServices)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	if f.Status != "" {
		if !f.Status.Valid() {
			return nil, invalid("status", "unknown status %q", f.Status)
		}
		orders = aggregate.Filter(orders, func(o model.ServiceOrder) bool { return o.Status == f.Status })
	}
	if f.Date != "" {
		day, err := model.ParseDate(f.Date)
		if err != nil {
			return nil, invalid("date", "expected YYYY-MM-DD, got %q", f.Date)
		}
		orders = aggregate.Filter(orders, func(o model.ServiceOrder) bool { return o.Date.Equal(day) })
	}
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		orders = aggregate.Filter(orders, func(o model.ServiceOrder) bool {
			return strings.Contains(strings.ToLower(o.CustomerName), term) ||
				strings.Contains(strings.ToLower(o.VehicleNumber), term) ||
				strings.Contains(o.Phone, term)
		})
	}

	report.SortOrdersNewestFirst(orders)
	return orders, nil
}

// CustomerHistory возвращает заказы автомобиля от новых к старым.
func (s *Service) CustomerHistory(ctx context.Context, vehicle string) ([]model.ServiceOrder, error) {
	key := model.VehicleKey(vehicle)
	if key == "" {
		return nil, invalid("carNumber", "is required")
	}
	orders, err := s.ListOrders(ctx, OrderFilter{})
	if err != nil {
		return nil, err
	}
	return aggregate.Filter(orders, func(o model.ServiceOrder) bool {
		return model.VehicleKey(o.VehicleNumber) == key
	}), nil
}

// NotifyOrder собирает сообщение клиенту о выполненном заказе.
func (s *Service) NotifyOrder(ctx context.Context, id string) (messaging.Message, error) {
	composer, err := s.messages()
	if err != nil {
		return messaging.Message{}, err
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return messaging.Message{}, err
	}
	msg, err := composer.ServiceNotification(o, loyalty.PointsPerService)
	if err != nil {
		return messaging.Message{}, invalid("phone", "%v", err)
	}
	return msg, nil
}

// Invoice печатает счёт по заказу вместе с историей визитов и баллами автомобиля.
func (s *Service) Invoice(ctx context.Context, id string) (export.Document, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return export.Document{}, err
	}
	// Проекция может ещё не знать об автомобиле только что созданного заказа.
	acc, err := s.freshAccount(ctx, o.VehicleNumber)
	if err != nil {
		return export.Document{}, err
	}
	return export.Invoice(s.shopName, o, acc)
}
