package tomojdom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jkowalik/billwatch/internal/common"
	"github.com/jkowalik/billwatch/internal/model"
)

// chargeRecord is one positional charge entry:
// [dueDateISO, title, rawValue, period, id]. The raw value is negative for
// amounts owed.
type chargeRecord struct {
	DueDate string
	Title   string
	Value   float64
	Period  model.OptInt
	ID      model.OptInt
}

func (r *chargeRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: charge record is not an array: %v", common.ErrDecoding, err)
	}
	if len(fields) < 5 {
		return fmt.Errorf("%w: charge record has %d fields, want 5", common.ErrDecoding, len(fields))
	}
	if err := field(fields, 0, "due date", &r.DueDate); err != nil {
		return err
	}
	if err := field(fields, 1, "title", &r.Title); err != nil {
		return err
	}
	if err := field(fields, 2, "value", &r.Value); err != nil {
		return err
	}
	if err := field(fields, 3, "period", &r.Period); err != nil {
		return err
	}
	return field(fields, 4, "id", &r.ID)
}

// paymentRecord is one positional payment entry: [dateISO, value].
type paymentRecord struct {
	Date  string
	Value float64
}

func (r *paymentRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: payment record is not an array: %v", common.ErrDecoding, err)
	}
	if len(fields) < 2 {
		return fmt.Errorf("%w: payment record has %d fields, want 2", common.ErrDecoding, len(fields))
	}
	if err := field(fields, 0, "date", &r.Date); err != nil {
		return err
	}
	return field(fields, 1, "value", &r.Value)
}

// monthRecord is one month entry of a yearly history response. Charges sit
// at index 2 and payments at index 4; the other positions carry labels the
// application does not use.
type monthRecord struct {
	Charges  []chargeRecord
	Payments []paymentRecord
}

func (m *monthRecord) UnmarshalJSON(data []byte) error {
	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("%w: month record is not an array: %v", common.ErrDecoding, err)
	}
	if len(fields) < 5 {
		return fmt.Errorf("%w: month record has %d fields, want 5", common.ErrDecoding, len(fields))
	}
	if err := field(fields, 2, "charge list", &m.Charges); err != nil {
		return err
	}
	return field(fields, 4, "payment list", &m.Payments)
}

// FetchRecords retrieves the full charge and payment history for the
// account, walking years backward from the current calendar year.
//
// Early-stop heuristic: an empty response for a past year is taken to mean
// history starts after that year and ends the walk. The current year is
// exempt, it legitimately may have no records yet. The walk is capped at
// 30 years as a sanity bound.
//
// Order of the returned slices is fetch order: most recent year first,
// within a year the server's month and record order. No global sort.
func (c *Client) FetchRecords(ctx context.Context, accountID int64) ([]model.Charge, []model.Payment, error) {
	thisYear := c.now().Year()

	var charges []model.Charge
	var payments []model.Payment

	for year := thisYear; year > thisYear-historyYears; year-- {
		data, err := c.post(ctx, c.apiURL+"/RozliczeniaSzczegolowe", map[string]any{
			"Rok": year,
			"WId": accountID,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("fetch year %d: %w", year, err)
		}

		var months []monthRecord
		if err := json.Unmarshal(data, &months); err != nil {
			if !errors.Is(err, common.ErrDecoding) {
				err = fmt.Errorf("%w: %v", common.ErrDecoding, err)
			}
			return nil, nil, fmt.Errorf("fetch year %d: %w", year, err)
		}

		if len(months) == 0 && year != thisYear {
			break
		}

		for _, month := range months {
			for _, rec := range month.Charges {
				dueDate, err := model.ParseDate(rec.DueDate)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: charge due date: %v", common.ErrDecoding, err)
				}
				charges = append(charges, model.Charge{
					ID:      rec.ID,
					Year:    year,
					Period:  rec.Period,
					Title:   rec.Title,
					DueDate: dueDate,
					// The portal encodes amounts owed as negative.
					Value: -rec.Value,
				})
			}
			for _, rec := range month.Payments {
				date, err := model.ParseDate(rec.Date)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: payment date: %v", common.ErrDecoding, err)
				}
				payments = append(payments, model.Payment{
					Date:  date,
					Value: rec.Value,
				})
			}
		}
	}

	return charges, payments, nil
}
