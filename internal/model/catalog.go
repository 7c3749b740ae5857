package model

import "github.com/shopspring/decimal"

// ServiceOption - позиция прайс-листа мойки.
type ServiceOption struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Price5 decimal.Decimal `json:"price5"`
	Price7 decimal.Decimal `json:"price7"`
}

// Price возвращает цену для пяти- или семиместного автомобиля.
func (o ServiceOption) Price(seater string) decimal.Decimal {
	if seater == "7" {
		return o.Price7
	}
	return o.Price5
}

var serviceCatalog = []ServiceOption{
	{ID: "basic", Name: "Car Body Wash", Price5: decimal.NewFromInt(300), Price7: decimal.NewFromInt(400)},
	{ID: "premium", Name: "Top Up Car Wash", Price5: decimal.NewFromInt(250), Price7: decimal.NewFromInt(350)},
	{ID: "interior", Name: "Interior Polish", Price5: decimal.NewFromInt(100), Price7: decimal.NewFromInt(100)},
	{ID: "exterior", Name: "Outer Polish", Price5: decimal.NewFromInt(100), Price7: decimal.NewFromInt(100)},
	{ID: "standard", Name: "Interior Detailing Clean", Price5: decimal.NewFromInt(2000), Price7: decimal.NewFromInt(3000)},
	{ID: "rubbing", Name: "Car Rubbing"},
	{ID: "coating", Name: "Car Coating"},
	{ID: "clean", Name: "Headlight Clean"},
	{ID: "mirror", Name: "Mirror Scratch Remove"},
	{ID: "other", Name: "Other Services"},
}

// ServiceCatalog возвращает прайс-лист мойки.
func ServiceCatalog() []ServiceOption {
	return append([]ServiceOption(nil), serviceCatalog...)
}

// LookupService ищет позицию прайс-листа по идентификатору.
func LookupService(id string) (ServiceOption, bool) {
	for _, o := range serviceCatalog {
		if o.ID == id {
			return o, true
		}
	}
	return ServiceOption{}, false
}

// ServiceName возвращает название услуги или сам идентификатор, если его нет в прайс-листе.
func ServiceName(id string) string {
	if o, ok := LookupService(id); ok {
		return o.Name
	}
	return id
}

// ExpenseCategories перечисляет стандартные категории расходов.
var ExpenseCategories = []string{"welding", "parts", "utilities", "maintenance", "misc"}
