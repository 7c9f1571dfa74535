package validation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleCommand struct {
	Deposit  string    `json:"deposit" validate:"required"`
	Label    string    `validate:"max=5"`
	Discount int       `validate:"min=5,max=70"`
	Start    time.Time `validate:"required"`
}

func TestValidateCollectsFieldErrors(t *testing.T) {
	v := New()
	err := v.Validate(context.Background(), sampleCommand{Label: "toolong", Discount: 90})

	require.ErrorIs(t, err, ErrInvalidInput)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	fields := map[string]string{}
	for _, f := range verr.Fields {
		fields[f.Field] = f.Rule
	}
	assert.Equal(t, map[string]string{
		"deposit":  "required",
		"Label":    "max",
		"Discount": "max",
		"Start":    "required",
	}, fields)
	assert.Contains(t, err.Error(), "Discount: max=70")
}

func TestValidateAcceptsPointersAndNonStructs(t *testing.T) {
	v := New()
	ok := &sampleCommand{Deposit: "North", Discount: 10, Start: time.Now()}

	assert.NoError(t, v.Validate(context.Background(), ok))
	assert.NoError(t, v.Validate(context.Background(), "plain"))
	assert.NoError(t, v.Validate(context.Background(), nil))
	assert.NoError(t, v.Validate(context.Background(), (*sampleCommand)(nil)))
}
