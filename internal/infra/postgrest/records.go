package postgrest

import (
	"encoding/json"
	"time"

	"github.com/zegrana/finance-core-go/internal/domain"
	"github.com/zegrana/finance-core-go/internal/port"
)

// ============================================================
// Record <-> domain mapping helpers
// ============================================================
//
// Money amounts travel as decimal strings end to end; they are never
// converted to floats on the way in or out of the provider.

func recString(rec port.Record, key string) string {
	if v, ok := rec[key].(string); ok {
		return v
	}
	return ""
}

func recBool(rec port.Record, key string) bool {
	if v, ok := rec[key].(bool); ok {
		return v
	}
	return false
}

func recInt(rec port.Record, key string) int {
	switch v := rec[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return int(i)
		}
	}
	return 0
}

func recFloat(rec port.Record, key string) float64 {
	switch v := rec[key].(type) {
	case float64:
		return v
	case json.Number:
		if f, err := v.Float64(); err == nil {
			return f
		}
	}
	return 0
}

func recTime(rec port.Record, key string) time.Time {
	s := recString(rec, key)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func recTimePtr(rec port.Record, key string) *time.Time {
	t := recTime(rec, key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func recMoney(rec port.Record, amountKey, currencyKey string) domain.Money {
	return domain.Money{
		Amount:   recString(rec, amountKey),
		Currency: recString(rec, currencyKey),
	}
}

// recMoneyPtr reads an optional money column pair; absent means nil.
func recMoneyPtr(rec port.Record, amountKey, currencyKey string) *domain.Money {
	amount := recString(rec, amountKey)
	if amount == "" {
		return nil
	}
	return &domain.Money{Amount: amount, Currency: recString(rec, currencyKey)}
}

func recStrings(rec port.Record, key string) []string {
	raw, ok := rec[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// recSplits decodes the splits JSON column.
func recSplits(rec port.Record, key string) []domain.Split {
	raw, ok := rec[key]
	if !ok || raw == nil {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var splits []domain.Split
	if err := json.Unmarshal(data, &splits); err != nil {
		return nil
	}
	return splits
}

func timeVal(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
