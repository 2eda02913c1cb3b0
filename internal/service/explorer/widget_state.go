package explorer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"mediafolders/internal/config"
	"mediafolders/internal/domain"
	models "mediafolders/internal/domain/models/explorer"
	explorerSvc "mediafolders/internal/domain/services/explorer"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// widgetStateCodec signs picker parameters with HMAC-SHA256.
type widgetStateCodec struct {
	secret []byte
}

// NewWidgetStateCodec creates a codec keyed with secret.
func NewWidgetStateCodec(secret string) (explorerSvc.WidgetStateCodec, error) {
	if secret == "" {
		return nil, errors.New("widget state secret is required")
	}
	return &widgetStateCodec{secret: []byte(secret)}, nil
}

// Encode validates the parameters and returns a signed state.
func (c *widgetStateCodec) Encode(
	openerID string,
	allowedTypes []string,
	selectedType string,
	remainingSlots int,
	openerContext map[string]string,
) (*models.WidgetState, error) {
	state := &models.WidgetState{
		OpenerID:       strings.TrimSpace(openerID),
		AllowedTypes:   models.CanonicalTypes(allowedTypes),
		SelectedType:   strings.TrimSpace(selectedType),
		RemainingSlots: remainingSlots,
		OpenerContext:  copyContext(openerContext),
	}
	if err := validateWidgetState(state); err != nil {
		return nil, err
	}
	state.Hash = c.sign(state.UnsignedValues())
	return state, nil
}

// Decode verifies and parses parameters produced by WidgetState.Values.
// The hash is checked before anything else, so any modified field yields
// ErrTampered rather than a validation error.
func (c *widgetStateCodec) Decode(raw map[string][]string) (*models.WidgetState, error) {
	params := url.Values(raw)

	supplied, err := hex.DecodeString(params.Get(models.ParamHash))
	if err != nil || len(supplied) == 0 {
		return nil, fmt.Errorf("%w: missing or malformed hash", domain.ErrTampered)
	}

	var allowed []string
	for _, v := range params[models.ParamAllowedType] {
		allowed = append(allowed, strings.Split(v, ",")...)
	}
	allowed = models.CanonicalTypes(allowed)

	openerContext := make(map[string]string)
	for k := range params {
		if name, ok := strings.CutPrefix(k, models.ParamContextPrefix); ok {
			openerContext[name] = params.Get(k)
		}
	}

	// Rebuild the signed form from the raw strings, not from parsed values.
	unsigned := url.Values{}
	unsigned.Set(models.ParamOpenerID, params.Get(models.ParamOpenerID))
	for _, t := range allowed {
		unsigned.Add(models.ParamAllowedType, t)
	}
	unsigned.Set(models.ParamSelectedType, params.Get(models.ParamSelectedType))
	unsigned.Set(models.ParamRemainingSlots, params.Get(models.ParamRemainingSlots))
	for k, v := range openerContext {
		unsigned.Set(models.ParamContextPrefix+k, v)
	}

	expected, _ := hex.DecodeString(c.sign(unsigned))
	if !hmac.Equal(expected, supplied) {
		return nil, fmt.Errorf("%w: widget state hash mismatch", domain.ErrTampered)
	}

	slots, err := strconv.Atoi(params.Get(models.ParamRemainingSlots))
	if err != nil {
		return nil, validationErrorf("remaining_slots must be an integer")
	}

	state := &models.WidgetState{
		OpenerID:       params.Get(models.ParamOpenerID),
		AllowedTypes:   allowed,
		SelectedType:   params.Get(models.ParamSelectedType),
		RemainingSlots: slots,
		OpenerContext:  openerContext,
		Hash:           params.Get(models.ParamHash),
	}
	if len(state.OpenerContext) == 0 {
		state.OpenerContext = nil
	}
	if err := validateWidgetState(state); err != nil {
		return nil, err
	}
	return state, nil
}

// sign returns the hex HMAC of the canonical encoding. url.Values.Encode
// sorts keys and escapes values, which makes the encoding unambiguous.
func (c *widgetStateCodec) sign(unsigned url.Values) string {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(unsigned.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
}

func validateWidgetState(state *models.WidgetState) error {
	allowed := make([]interface{}, len(state.AllowedTypes))
	for i, t := range state.AllowedTypes {
		allowed[i] = t
	}

	err := validation.ValidateStruct(state,
		validation.Field(&state.OpenerID, validation.Required.Error("opener id is required")),
		validation.Field(&state.AllowedTypes,
			validation.Required.Error("at least one allowed type is required"),
			validation.Each(
				validation.Length(1, config.MaxBundleLength),
				validation.Match(bundleName).Error("types must be lowercase letters, digits, dashes or underscores"),
			),
		),
		validation.Field(&state.SelectedType,
			validation.Required,
			validation.In(allowed...).Error("selected type must be one of the allowed types"),
		),
		validation.Field(&state.RemainingSlots,
			validation.Min(models.UnlimitedSlots).Error("remaining slots must be -1 (unlimited) or more"),
		),
	)
	if err != nil {
		return wrapValidation(err)
	}

	for k := range state.OpenerContext {
		if strings.TrimSpace(k) == "" {
			return validationErrorf("opener context keys cannot be empty")
		}
	}
	return nil
}

func copyContext(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
