package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/rs/zerolog/log"

	"github.com/mybiom/biom/internal/metrics"
	"github.com/mybiom/biom/internal/model"
	"github.com/mybiom/biom/internal/store"
)

const maxAttributeNameLen = 64

// AttributeService writes attribute values through the history log and reads
// the current-value projection.
type AttributeService struct {
	store store.Store
	opts  Options
}

func NewAttributeService(s store.Store, opts Options) *AttributeService {
	return &AttributeService{store: s, opts: opts.withDefaults()}
}

// NormalizeAttributeName trims name and checks it can be used as a field name.
func NormalizeAttributeName(name string) (string, error) {
	n := strings.TrimSpace(name)
	switch {
	case n == "":
		return "", model.NewValidationError("name", "attribute name is required")
	case len(n) > maxAttributeNameLen:
		return "", model.NewValidationError(n, fmt.Sprintf("attribute name must be at most %d bytes", maxAttributeNameLen))
	case strings.IndexFunc(n, unicode.IsControl) >= 0:
		return "", model.NewValidationError(n, "attribute name must not contain control characters")
	}
	return n, nil
}

// CoerceValue converts a decoded scalar into its stored text form. Numbers are
// numeric and canonicalised. Strings are kept verbatim as text; checkKinds
// canonicalises them only when their field is already numeric.
func CoerceValue(name string, v interface{}) (string, model.AttributeKind, error) {
	switch x := v.(type) {
	case nil:
		return "", "", model.NewValidationError(name, "value must not be null")
	case string:
		return x, model.KindText, nil
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return "", "", model.NewValidationError(name, fmt.Sprintf("invalid number %q", x.String()))
		}
		return numeric(name, f)
	case float64:
		return numeric(name, x)
	case float32:
		return numeric(name, float64(x))
	case int:
		return numeric(name, float64(x))
	case int64:
		return numeric(name, float64(x))
	default:
		return "", "", model.NewValidationError(name, fmt.Sprintf("value must be a string or number, got %T", v))
	}
}

func numeric(name string, f float64) (string, model.AttributeKind, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", "", model.NewValidationError(name, "value must be a finite number")
	}
	return model.FormatNumber(f), model.KindNumeric, nil
}

// SetAttribute writes one value. The field is registered on first use; history
// and projection are updated together or not at all.
func (s *AttributeService) SetAttribute(ctx context.Context, userID, name string, value interface{}) (*model.AttributeRecord, error) {
	recs, err := s.SetAttributes(ctx, userID, map[string]interface{}{name: value})
	if err != nil {
		var batch *model.BatchError
		if errors.As(err, &batch) && batch.Err != nil {
			return nil, batch.Err
		}
		return nil, err
	}
	return recs[0], nil
}

// SetAttributes writes a batch all-or-nothing. Every value is validated before
// anything is written; any failure rejects the whole batch with a *model.BatchError.
func (s *AttributeService) SetAttributes(ctx context.Context, userID string, values map[string]interface{}) ([]*model.AttributeRecord, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, model.NewValidationError("data", "at least one attribute is required")
	}

	writes, failures := s.prepare(values)
	rejected := make([]string, 0, len(values))
	for raw := range values {
		rejected = append(rejected, strings.TrimSpace(raw))
	}
	sort.Strings(rejected)

	if len(failures) == 0 {
		writes, failures = s.checkKinds(ctx, writes)
	}
	if len(failures) > 0 {
		metrics.AttributeWritesTotal.WithLabelValues("invalid").Add(float64(len(values)))
		return nil, &model.BatchError{
			Failures: failures,
			Rejected: rejected,
			Err:      model.NewValidationError(failures[0].Name, failures[0].Reason),
		}
	}

	recs, err := storeCall(ctx, s.opts, "apply attributes", func(ctx context.Context) ([]*model.AttributeRecord, error) {
		return s.store.Attributes().Apply(ctx, userID, writes)
	})
	if err != nil {
		var ve model.ValidationError
		batch := &model.BatchError{Rejected: rejected, Err: err}
		if errors.As(err, &ve) {
			// A concurrent writer fixed the field's kind after checkKinds ran.
			batch.Failures = []model.AttributeFailure{{Name: ve.Field, Reason: ve.Message}}
			metrics.AttributeWritesTotal.WithLabelValues("invalid").Add(float64(len(values)))
		} else {
			metrics.AttributeWritesTotal.WithLabelValues("storage").Add(float64(len(values)))
		}
		return nil, batch
	}
	metrics.AttributeWritesTotal.WithLabelValues("ok").Add(float64(len(recs)))
	return recs, nil
}

func (s *AttributeService) prepare(values map[string]interface{}) ([]model.AttributeWrite, []model.AttributeFailure) {
	writes := make([]model.AttributeWrite, 0, len(values))
	var failures []model.AttributeFailure
	seen := make(map[string]string, len(values))

	for raw, v := range values {
		name, err := NormalizeAttributeName(raw)
		if err != nil {
			failures = append(failures, model.AttributeFailure{Name: raw, Reason: reason(err)})
			continue
		}
		if other, dup := seen[name]; dup {
			failures = append(failures, model.AttributeFailure{Name: raw, Reason: fmt.Sprintf("duplicates %q after trimming", other)})
			continue
		}
		seen[name] = raw

		value, kind, err := CoerceValue(name, v)
		if err != nil {
			failures = append(failures, model.AttributeFailure{Name: name, Reason: reason(err)})
			continue
		}
		writes = append(writes, model.AttributeWrite{Name: name, Value: value, Kind: kind})
	}
	sort.Slice(writes, func(i, j int) bool { return writes[i].Name < writes[j].Name })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })
	return writes, failures
}

// checkKinds resolves string values against the registered kind of their
// field: strings aimed at a numeric field are canonicalised when they hold a
// number and reported otherwise. Strings for new or text fields stay verbatim.
func (s *AttributeService) checkKinds(ctx context.Context, writes []model.AttributeWrite) ([]model.AttributeWrite, []model.AttributeFailure) {
	names := make([]string, 0, len(writes))
	for _, w := range writes {
		if w.Kind == model.KindText {
			names = append(names, w.Name)
		}
	}
	if len(names) == 0 {
		return writes, nil
	}
	fields, err := s.lookupFields(ctx, names)
	if err != nil {
		// Apply re-checks each field's kind inside its transaction, so a failed
		// lookup only loses the early, complete failure report.
		log.Warn().Err(err).Strs("names", names).Msg("attribute kind lookup failed")
		return writes, nil
	}

	out := make([]model.AttributeWrite, 0, len(writes))
	var failures []model.AttributeFailure
	for _, w := range writes {
		if f, ok := fields[w.Name]; ok && w.Kind == model.KindText && f.Kind == model.KindNumeric {
			v, ok := model.CanonicalNumber(w.Value)
			if !ok {
				failures = append(failures, model.AttributeFailure{Name: w.Name, Reason: fmt.Sprintf("value %q is not numeric", w.Value)})
				continue
			}
			w.Value, w.Kind = v, model.KindNumeric
		}
		out = append(out, w)
	}
	return out, failures
}

// lookupFields reads the registry entries of names; unregistered names are absent.
func (s *AttributeService) lookupFields(ctx context.Context, names []string) (map[string]*model.AttributeField, error) {
	if len(names) > 1 {
		return storeCall(ctx, s.opts, "lookup fields", func(ctx context.Context) (map[string]*model.AttributeField, error) {
			return s.store.Attributes().Fields(ctx, names)
		})
	}
	f, err := storeCall(ctx, s.opts, "lookup field", func(ctx context.Context) (*model.AttributeField, error) {
		return s.store.Attributes().Field(ctx, names[0])
	})
	switch {
	case model.IsNotFoundError(err):
		return map[string]*model.AttributeField{}, nil
	case err != nil:
		return nil, err
	}
	return map[string]*model.AttributeField{f.Name: f}, nil
}

func reason(err error) string {
	var ve model.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}

// GetAttributes returns the current value of every attribute of the user, sorted by name.
func (s *AttributeService) GetAttributes(ctx context.Context, userID string) ([]*model.Attribute, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "current attributes", func(ctx context.Context) ([]*model.Attribute, error) {
		return s.store.Attributes().Current(ctx, userID)
	})
}

func (s *AttributeService) GetAttribute(ctx context.Context, userID, name string) (*model.Attribute, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	n, err := NormalizeAttributeName(name)
	if err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "current attribute", func(ctx context.Context) (*model.Attribute, error) {
		return s.store.Attributes().CurrentByName(ctx, userID, n)
	})
}

// History returns the records of one attribute in the order they were recorded.
func (s *AttributeService) History(ctx context.Context, userID, name string) ([]*model.AttributeRecord, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	n, err := NormalizeAttributeName(name)
	if err != nil {
		return nil, err
	}
	return storeCall(ctx, s.opts, "attribute history", func(ctx context.Context) ([]*model.AttributeRecord, error) {
		return s.store.Attributes().HistoryByName(ctx, userID, n)
	})
}
