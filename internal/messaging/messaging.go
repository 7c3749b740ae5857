// Package messaging формирует тексты уведомлений и ссылки wa.me для их отправки.
package messaging

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/mmeshcher/carwash-console/internal/model"
	"github.com/mmeshcher/carwash-console/internal/validation"
)

// Template - шаблон сообщения.
type Template string

const (
	TemplateLoyaltyReminder     Template = "loyalty-reminder"
	TemplateServiceNotification Template = "service-notification"
	TemplatePaymentReminder     Template = "payment-reminder"
	TemplateAttendanceReminder  Template = "attendance-reminder"
	TemplateTaskAssignment      Template = "task-assignment"
)

var (
	// ErrInvalidPhone возвращается, если по номеру телефона нельзя построить ссылку.
	ErrInvalidPhone = errors.New("invalid phone number")
	// ErrUnknownTemplate возвращается для неизвестного шаблона.
	ErrUnknownTemplate = errors.New("unknown message template")
)

var texts = map[Template]string{
	TemplateLoyaltyReminder: "Hi %[1]s,\n\nThis is a friendly reminder that you have %[2]d loyalty points with %[3]s " +
		"that will expire soon. Redeem them for a free service before they expire!\n\n" +
		"Thank you for being a valued customer.\n\n-%[3]s Team",
	TemplateServiceNotification: "Hi %[1]s!\n\nYour car (%[2]s) has been serviced at %[3]s!\n\n" +
		"Status: %[4]s\n\nCongratulations! You've earned %[5]d points on this service.\n" +
		"Thank you for choosing us! We appreciate your trust. \n" +
		"Come back soon for more rewards and a sparkling ride.....",
	TemplatePaymentReminder: "Hello %[1]s, this is a reminder that your payment of %[2]s is due. " +
		"Please collect it from the office.",
	TemplateAttendanceReminder: "Hello %[1]s, please remember to come to work tomorrow. Your presence is important.",
	TemplateTaskAssignment:     "Hello %[1]s, you have been assigned a new task: %[2]s. Please complete it by %[3]s.",
}

// Message - готовое сообщение и ссылка для его отправки.
type Message struct {
	Template Template `json:"template"`
	Text     string   `json:"text"`
	Link     string   `json:"link"`
}

// Composer собирает сообщения клиентам и работникам.
type Composer struct {
	countryCode string
	shopName    string
	printer     *message.Printer
}

// NewComposer создаёт составителя сообщений для телефонного кода страны и названия мойки.
func NewComposer(countryCode, shopName string) (*Composer, error) {
	cat := catalog.NewBuilder(catalog.Fallback(language.English))
	for tmpl, text := range texts {
		if err := cat.SetString(language.English, string(tmpl), text); err != nil {
			return nil, fmt.Errorf("register template %s: %w", tmpl, err)
		}
	}

	return &Composer{
		countryCode: strings.TrimPrefix(strings.TrimSpace(countryCode), "+"),
		shopName:    shopName,
		printer:     message.NewPrinter(language.English, message.Catalog(cat)),
	}, nil
}

// Templates возвращает шаблоны сообщений работнику.
func Templates() []Template {
	return []Template{TemplatePaymentReminder, TemplateAttendanceReminder, TemplateTaskAssignment}
}

// Amount форматирует сумму в рупиях, округляя до целого.
func (c *Composer) Amount(v decimal.Decimal) string {
	return c.printer.Sprintf("₹%d", v.Round(0).IntPart())
}

// Link строит ссылку wa.me с текстом сообщения.
func (c *Composer) Link(phone, text string) (string, error) {
	normalized, ok := validation.NormalizePhone(phone)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhone, phone)
	}
	// wa.me ожидает пробелы в виде %20, а не +.
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + c.countryCode + normalized + "?text=" + encoded, nil
}

// LoyaltyReminder напоминает клиенту о скором сгорании баллов.
func (c *Composer) LoyaltyReminder(acc model.LoyaltyAccount) (Message, error) {
	text := c.printer.Sprintf(string(TemplateLoyaltyReminder), acc.Name, acc.DisplayPoints(), c.shopName)
	return c.message(TemplateLoyaltyReminder, acc.Phone, text)
}

// ServiceNotification сообщает клиенту о выполненном заказе и начисленных баллах.
func (c *Composer) ServiceNotification(o model.ServiceOrder, pointsEarned int) (Message, error) {
	status := string(o.Status)
	if status != "" {
		status = strings.ToUpper(status[:1]) + status[1:]
	}
	text := c.printer.Sprintf(string(TemplateServiceNotification),
		o.CustomerName, o.VehicleNumber, c.shopName, status, pointsEarned)
	return c.message(TemplateServiceNotification, o.Phone, text)
}

// WorkerParams - значения, подставляемые в шаблоны сообщений работнику.
type WorkerParams struct {
	Payment decimal.Decimal
	Task    string
	Due     model.Date
}

// WorkerMessage собирает сообщение работнику по шаблону.
func (c *Composer) WorkerMessage(tmpl Template, w model.Worker, p WorkerParams) (Message, error) {
	var text string
	switch tmpl {
	case TemplatePaymentReminder:
		text = c.printer.Sprintf(string(tmpl), w.Name, c.Amount(p.Payment))
	case TemplateAttendanceReminder:
		text = c.printer.Sprintf(string(tmpl), w.Name)
	case TemplateTaskAssignment:
		task := p.Task
		if task == "" {
			task = "assigned task"
		}
		text = c.printer.Sprintf(string(tmpl), w.Name, task, p.Due.String())
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownTemplate, tmpl)
	}
	return c.message(tmpl, w.Phone, text)
}

func (c *Composer) message(tmpl Template, phone, text string) (Message, error) {
	link, err := c.Link(phone, text)
	if err != nil {
		return Message{}, err
	}
	return Message{Template: tmpl, Text: text, Link: link}, nil
}
