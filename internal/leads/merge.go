package leads

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ridgelineexteriors/lead-intake/internal/domain"
)

// Lead is one prospective customer record, from the website form or an
// imported lead list.
type Lead struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Source    string `json:"source,omitempty"`
	ContactID string `json:"contactId,omitempty"`
}

// completeness scores how much usable contact detail a record carries. Phone
// and email outweigh the rest so a record we can actually reach wins ties.
func (l Lead) completeness() int {
	score := 0
	if l.Phone != "" {
		score += 4
	}
	if l.Email != "" {
		score += 4
	}
	if l.Name != "" {
		score += 2
	}
	if l.Address != "" {
		score++
	}
	if l.Notes != "" {
		score++
	}
	return score
}

// Merge joins lead lists on the normalized address key, keeping the most
// complete record per key and filling its gaps from the others. Records
// without an address cannot be joined and pass through unchanged. Output is
// sorted by address key for stable diffs between runs.
func Merge(lists ...[]Lead) []Lead {
	byKey := make(map[string]Lead)
	var keyless []Lead

	for _, list := range lists {
		for _, lead := range list {
			key := AddressKey(lead.Address)
			if key == "" {
				keyless = append(keyless, lead)
				continue
			}
			existing, ok := byKey[key]
			if !ok {
				byKey[key] = lead
				continue
			}
			byKey[key] = combine(existing, lead)
		}
	}

	keys := make([]string, 0, len(byKey))
	for key := range byKey {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	merged := make([]Lead, 0, len(byKey)+len(keyless))
	for _, key := range keys {
		merged = append(merged, byKey[key])
	}
	return append(merged, keyless...)
}

func combine(a, b Lead) Lead {
	winner, loser := a, b
	if b.completeness() > a.completeness() {
		winner, loser = b, a
	}
	if winner.Name == "" {
		winner.Name = loser.Name
	}
	if winner.Phone == "" {
		winner.Phone = loser.Phone
	}
	if winner.Email == "" {
		winner.Email = loser.Email
	}
	if winner.Notes == "" {
		winner.Notes = loser.Notes
	}
	if winner.Source == "" {
		winner.Source = loser.Source
	}
	return winner
}

// csvColumns maps the header names seen across lead list exports to Lead
// fields. Matching is case-insensitive after stripping spaces and
// underscores.
var csvColumns = map[string]string{
	"name":            "name",
	"fullname":        "name",
	"contactname":     "name",
	"phone":           "phone",
	"phonenumber":     "phone",
	"mobile":          "phone",
	"email":           "email",
	"emailaddress":    "email",
	"address":         "address",
	"streetaddress":   "address",
	"propertyaddress": "address",
	"notes":           "notes",
	"note":            "notes",
	"source":          "source",
}

// ReadCSV parses one lead list. The first row must be a header; unrecognized
// columns are ignored. Phone numbers are normalized on the way in.
func ReadCSV(r io.Reader, source string) ([]Lead, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	fields := make(map[int]string, len(header))
	for i, col := range header {
		normalized := strings.ToLower(col)
		normalized = strings.ReplaceAll(normalized, " ", "")
		normalized = strings.ReplaceAll(normalized, "_", "")
		if field, ok := csvColumns[normalized]; ok {
			fields[i] = field
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("no recognized columns in header %v", header)
	}

	var leads []Lead
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		var lead Lead
		for i, value := range row {
			value = strings.TrimSpace(value)
			switch fields[i] {
			case "name":
				lead.Name = value
			case "phone":
				lead.Phone = domain.NormalizePhone(value)
			case "email":
				lead.Email = value
			case "address":
				lead.Address = value
			case "notes":
				lead.Notes = value
			case "source":
				lead.Source = value
			}
		}
		if lead.Source == "" {
			lead.Source = source
		}
		if lead == (Lead{Source: lead.Source}) {
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// WriteCSV emits leads with a fixed header, the inverse of ReadCSV.
func WriteCSV(w io.Writer, leads []Lead) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"name", "phone", "email", "address", "notes", "source"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, lead := range leads {
		row := []string{lead.Name, lead.Phone, lead.Email, lead.Address, lead.Notes, lead.Source}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
