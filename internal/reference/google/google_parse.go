package google

import (
	"fmt"
	"strconv"
	"strings"

	"catatan/internal/core"
)

// parseReferences converts rows of [key, name] into references. Blank rows and
// rows whose first cell starts with "#" are skipped; repeated keys keep the
// first occurrence.
func parseReferences(values [][]interface{}) ([]core.Reference, error) {
	var out []core.Reference
	seen := map[int]struct{}{}
	for i, raw := range values {
		row := toStrings(raw)
		keyStr := safeGet(row, 0)
		name := safeGet(row, 1)
		if keyStr == "" && name == "" {
			continue
		}
		if strings.HasPrefix(keyStr, "#") {
			continue
		}
		key, err := parseKey(keyStr)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid key %q", i+2, keyStr)
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, core.Reference{Key: key, Name: name})
	}
	return out, nil
}

// parseTransactions expects a header row with ID, Date, Description, Amount,
// Account and Category in any order.
func parseTransactions(values [][]interface{}) ([]core.Transaction, error) {
	if len(values) == 0 {
		return nil, nil
	}
	headers := toStrings(values[0])
	cols := map[string]int{}
	var missing []string
	for _, h := range []string{"ID", "Date", "Description", "Amount", "Account", "Category"} {
		idx := indexOf(headers, h)
		if idx == -1 {
			missing = append(missing, h)
		}
		cols[h] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("unexpected transactions header: missing %s; got headers=%v", strings.Join(missing, ","), headers)
	}

	out := make([]core.Transaction, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		desc := safeGet(row, cols["Description"])
		if desc == "" {
			continue
		}
		date, err := core.ParseDate(safeGet(row, cols["Date"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		amount, err := core.ParseAmount(safeGet(row, cols["Amount"]))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		out = append(out, core.Transaction{
			ID:          safeGet(row, cols["ID"]),
			Description: desc,
			Amount:      amount,
			Date:        date,
			Account:     safeGet(row, cols["Account"]),
			Category:    safeGet(row, cols["Category"]),
		})
	}
	return out, nil
}

// parseKey accepts integral cell values; Sheets may render them as "3" or "3.0".
func parseKey(s string) (int, error) {
	if k, err := strconv.Atoi(s); err == nil {
		return k, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int(f), nil
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func indexOf(arr []string, target string) int {
	for i, v := range arr {
		if strings.EqualFold(v, target) {
			return i
		}
	}
	return -1
}

func safeGet(arr []string, idx int) string {
	if idx >= 0 && idx < len(arr) {
		return arr[idx]
	}
	return ""
}
