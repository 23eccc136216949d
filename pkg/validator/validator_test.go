package validator

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type line struct {
	ID       string `json:"id" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

type order struct {
	OrderType string `json:"order_type" validate:"required,oneof=dine-in takeout delivery"`
	Items     []line `json:"items" validate:"required,min=1,dive"`
}

func TestValidate_Success(t *testing.T) {
	o := order{OrderType: "takeout", Items: []line{{ID: "l1", Quantity: 2}}}
	assert.NoError(t, Validate(o))
}

func TestValidate_ReportsJSONFieldNames(t *testing.T) {
	o := order{OrderType: "drive-thru", Items: []line{{Quantity: 0}}}

	err := Validate(o)
	require.Error(t, err)

	var valErr *ValidationError
	require.ErrorAs(t, err, &valErr)
	fields := valErr.Fields()
	assert.Equal(t, "must be one of: dine-in takeout delivery", fields["order_type"])
	assert.Equal(t, "is required", fields["items[0].id"])
	assert.Equal(t, "must be at least 1", fields["items[0].quantity"])
}

func TestValidate_EmptySlice(t *testing.T) {
	o := order{OrderType: "takeout", Items: []line{}}

	var valErr *ValidationError
	require.ErrorAs(t, Validate(o), &valErr)
	assert.Equal(t, "must contain at least 1 entries", valErr.Fields()["items"])
}

func TestValidationError_Message(t *testing.T) {
	err := Validate(order{Items: []line{{ID: "l1", Quantity: 1}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'order.order_type' is required")
}

func TestDecodeAndValidate(t *testing.T) {
	body := `{"order_type":"dine-in","items":[{"id":"l1","quantity":1}]}`
	r := httptest.NewRequest("POST", "/", strings.NewReader(body))

	var o order
	require.NoError(t, DecodeAndValidate(r, &o))
	assert.Equal(t, "dine-in", o.OrderType)
}

func TestDecodeAndValidate_BadJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"order_type":`))

	var o order
	err := DecodeAndValidate(r, &o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode request body")
}
