package snapshot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/dvloznov/banking-insights/internal/domain"
)

// decodeCollection unwraps one raw collection file into its record objects.
// The API wraps pages as {"results": [...]}; files saved by older pull runs
// are bare arrays. Both are accepted.
func decodeCollection(data []byte) ([]map[string]interface{}, error) {
	var wrapped struct {
		Results []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Results != nil {
		return wrapped.Results, nil
	}

	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decodeCollection: unmarshal: %w", err)
	}
	return records, nil
}

// DecodeAccounts parses the accounts collection.
func DecodeAccounts(data []byte) ([]domain.Account, error) {
	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("DecodeAccounts: %w", err)
	}

	accounts := make([]domain.Account, 0, len(records))
	for _, obj := range records {
		id := idField(obj)
		if id == "" {
			continue
		}
		accounts = append(accounts, domain.Account{
			ID:         id,
			CustomerID: stringField(obj, "customer_id"),
			Balance:    numericField(obj, "balance"),
			Rewards:    numericField(obj, "rewards"),
		})
	}
	return accounts, nil
}

// DecodeCustomers parses the customers collection. Geography fields are read
// flat ("zip", "city", "state") with a fallback to the nested "address"
// object the upstream API uses.
func DecodeCustomers(data []byte) ([]domain.Customer, error) {
	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("DecodeCustomers: %w", err)
	}

	customers := make([]domain.Customer, 0, len(records))
	for _, obj := range records {
		id := idField(obj)
		if id == "" {
			continue
		}
		c := domain.Customer{
			ID:        id,
			FirstName: stringField(obj, "first_name"),
			LastName:  stringField(obj, "last_name"),
			Zip:       stringField(obj, "zip"),
			City:      stringField(obj, "city"),
			State:     stringField(obj, "state"),
		}
		if addr, ok := obj["address"].(map[string]interface{}); ok {
			if c.Zip == "" {
				c.Zip = stringField(addr, "zip")
			}
			if c.City == "" {
				c.City = stringField(addr, "city")
			}
			if c.State == "" {
				c.State = stringField(addr, "state")
			}
		}
		customers = append(customers, c)
	}
	return customers, nil
}

// DecodeBills parses the bills collection.
func DecodeBills(data []byte) ([]domain.Bill, error) {
	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("DecodeBills: %w", err)
	}

	bills := make([]domain.Bill, 0, len(records))
	for _, obj := range records {
		id := idField(obj)
		if id == "" {
			continue
		}
		bills = append(bills, domain.Bill{
			ID:            id,
			AccountID:     stringField(obj, "account_id"),
			PaymentAmount: numericField(obj, "payment_amount"),
			Status:        strings.ToLower(stringField(obj, "status")),
		})
	}
	return bills, nil
}

// DecodeTransfers parses the transfers collection.
func DecodeTransfers(data []byte) ([]domain.Transfer, error) {
	records, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("DecodeTransfers: %w", err)
	}

	transfers := make([]domain.Transfer, 0, len(records))
	for _, obj := range records {
		id := idField(obj)
		if id == "" {
			continue
		}
		transfers = append(transfers, domain.Transfer{
			ID:      id,
			Type:    strings.ToLower(stringField(obj, "type")),
			Amount:  numericField(obj, "amount"),
			PayerID: stringField(obj, "payer_id"),
			PayeeID: stringField(obj, "payee_id"),
		})
	}
	return transfers, nil
}

// idField reads the record identifier. The API emits "_id"; tabular exports
// use "id".
func idField(m map[string]interface{}) string {
	if id := stringField(m, "_id"); id != "" {
		return id
	}
	return stringField(m, "id")
}

func stringField(m map[string]interface{}, key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		// Numeric zips survive a round trip through spreadsheet tools.
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// numericField coerces an amount-like field. Malformed values become 0 so
// the record still participates in count metrics; they are never dropped.
func numericField(m map[string]interface{}, key string) float64 {
	v, ok := m[key]
	if !ok || v == nil {
		return 0
	}
	switch val := v.(type) {
	case float64:
		return val
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0
		}
		return f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
