package pipeline

import (
	"github.com/datareef/reef-engine/pkg/apperrors"
)

// ValidateFormat rejects structurally inconsistent batches before schema work
// proceeds. Rules are enforced in order and the first violation wins:
//
//  1. the batch and every row-set in it are non-empty
//  2. header keys are unique within a row-set
//  3. every row is a plain flat object
//  4. no field is null or empty-string (emptiness at this stage means broken
//     source data; a legitimately absent value only exists after casting)
//  5. every row's key set exactly matches its set's header
func ValidateFormat(sets []RowSet) error {
	if len(sets) == 0 {
		return apperrors.New(apperrors.KindFormatValidation, "data batch is empty")
	}

	for si, set := range sets {
		label := set.Name
		if label == "" {
			label = "row set"
		}

		if len(set.Rows) == 0 {
			return apperrors.Newf(apperrors.KindFormatValidation, "%s %d contains no rows", label, si)
		}

		seen := make(map[string]bool, len(set.Header))
		for _, col := range set.Header {
			if seen[col] {
				return apperrors.Newf(apperrors.KindFormatValidation, "%s %d has duplicate column %q", label, si, col)
			}
			seen[col] = true
		}

		for ri, raw := range set.Rows {
			row, ok := asObject(raw)
			if !ok {
				return apperrors.Newf(apperrors.KindFormatValidation, "%s %d row %d is not a plain object", label, si, ri)
			}

			for col, v := range row {
				if v == nil {
					return apperrors.Newf(apperrors.KindFormatValidation, "%s %d row %d has null value in column %q", label, si, ri, col)
				}
				if s, isStr := v.(string); isStr && s == "" {
					return apperrors.Newf(apperrors.KindFormatValidation, "%s %d row %d has empty value in column %q", label, si, ri, col)
				}
			}

			if len(row) != len(set.Header) {
				return apperrors.Newf(apperrors.KindFormatValidation, "%s %d row %d has %d columns, header has %d", label, si, ri, len(row), len(set.Header))
			}
			for col := range row {
				if !seen[col] {
					return apperrors.Newf(apperrors.KindFormatValidation, "%s %d row %d has unexpected column %q", label, si, ri, col)
				}
			}
		}
	}

	return nil
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, m != nil
	default:
		return nil, false
	}
}
