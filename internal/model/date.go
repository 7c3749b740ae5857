package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout - формат календарной даты в хранилище.
const DateLayout = "2006-01-02"

// Date - календарная дата без времени суток.
type Date struct {
	t time.Time
}

// NewDate создаёт дату из года, месяца и дня.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf возвращает календарную дату момента времени в его часовом поясе.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate разбирает дату в формате YYYY-MM-DD или RFC3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// MustParseDate разбирает дату и паникует при ошибке. Предназначена для тестов и констант.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Time() time.Time { return d.t }
func (d Date) Year() int { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int { return d.t.Day() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool { return d.t.Equal(o.t) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) MonthKey() MonthKey { return MonthKey{Year: d.Year(), Month: d.Month()} }
func (d Date) Compare(o Date) int { return d.t.Compare(o.t) }
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
}

// String возвращает дату в формате YYYY-MM-DD, для нулевой даты - пустую строку.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// MarshalJSON кодирует дату строкой YYYY-MM-DD.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON принимает строку даты, пустую строку или null.
func (d *Date) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthKey - ключ месяца в виде «год-месяц» без ведущего нуля, например 2024-1.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthKeyOf возвращает ключ месяца для момента времени.
func MonthKeyOf(t time.Time) MonthKey {
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// ParseMonthKey разбирает ключ месяца вида 2024-1 или 2024-01.
func ParseMonthKey(s string) (MonthKey, error) {
	yearStr, monthStr, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return MonthKey{}, fmt.Errorf("invalid month key %q", s)
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 1 {
		return MonthKey{}, fmt.Errorf("invalid year in month key %q", s)
	}
	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		return MonthKey{}, fmt.Errorf("invalid month in month key %q", s)
	}
	return MonthKey{Year: year, Month: time.Month(month)}, nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%d-%d", k.Year, int(k.Month))
}

// Days возвращает число дней в месяце с учётом високосных лет.
func (k MonthKey) Days() int {
	return time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Contains сообщает, попадает ли момент времени в месяц (в часовом поясе самого момента).
func (k MonthKey) Contains(t time.Time) bool {
	return t.Year() == k.Year && t.Month() == k.Month
}

// Compare сравнивает месяцы хронологически.
func (k MonthKey) Compare(o MonthKey) int {
	switch {
	case k.Year != o.Year:
		if k.Year < o.Year {
			return -1
		}
		return 1
	case k.Month != o.Month:
		if k.Month < o.Month {
			return -1
		}
		return 1
	}
	return 0
}

// MarshalText позволяет использовать ключ месяца как ключ JSON-объекта.
func (k MonthKey) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText разбирает ключ месяца из текста.
func (k *MonthKey) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthKey(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
