package extract

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func doc(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestExtract_NumberField(t *testing.T) {
	d := doc(t, `{"data":{"items":[{"lastPrice":"342.56"}]}}`)
	descs := []FieldDescriptor{
		{Field: "price", Path: "$.data.items[0].lastPrice", Rule: Number, Sentinel: "--"},
	}

	out, err := Extract(d, descs, DefaultFormat())
	require.NoError(t, err)
	require.True(t, out["price"].Equal(decimal.RequireFromString("342.56")))
}

func TestExtract_NumberWithGroupSeparators(t *testing.T) {
	d := doc(t, `{"price":"1,234.56"}`)
	descs := []FieldDescriptor{{Field: "price", Path: "$.price", Rule: Number}}

	out, err := Extract(d, descs, DefaultFormat())
	require.NoError(t, err)
	require.True(t, out["price"].Equal(decimal.RequireFromString("1234.56")))
}

func TestExtract_EuropeanNumberFormat(t *testing.T) {
	d := doc(t, `{"price":"1.234,56"}`)
	descs := []FieldDescriptor{{Field: "price", Path: "$.price", Rule: Number}}
	nf := NumberFormat{DecimalSep: ',', GroupSep: '.'}

	out, err := Extract(d, descs, nf)
	require.NoError(t, err)
	require.True(t, out["price"].Equal(decimal.RequireFromString("1234.56")))
}

func TestExtract_PercentTrimsSuffix(t *testing.T) {
	d := doc(t, `{"perf":{"5y":"12.4%"}}`)
	descs := []FieldDescriptor{{Field: "5y", Path: `$.perf["5y"]`, Rule: Percent, Sentinel: "--"}}

	out, err := Extract(d, descs, DefaultFormat())
	require.NoError(t, err)
	require.True(t, out["5y"].Equal(decimal.RequireFromString("12.4")))
}

func TestExtract_JSONNumberValue(t *testing.T) {
	d := doc(t, `{"price":342.56}`)
	descs := []FieldDescriptor{{Field: "price", Path: "$.price", Rule: Number}}

	out, err := Extract(d, descs, DefaultFormat())
	require.NoError(t, err)
	require.True(t, out["price"].Equal(decimal.RequireFromString("342.56")))
}

func TestExtract_SentinelOmitsFieldWithoutError(t *testing.T) {
	d := doc(t, `{"perf":{"5y":"--","3y":"8.1%"}}`)
	descs := []FieldDescriptor{
		{Field: "5y", Path: `$.perf["5y"]`, Rule: Percent, Sentinel: "--"},
		{Field: "3y", Path: `$.perf["3y"]`, Rule: Percent, Sentinel: "--"},
	}

	out, err := Extract(d, descs, DefaultFormat())
	require.NoError(t, err)
	require.NotContains(t, out, "5y")
	require.True(t, out["3y"].Equal(decimal.RequireFromString("8.1")))
}

func TestExtract_MissingLocatorIsFieldNotFound(t *testing.T) {
	d := doc(t, `{"data":{}}`)
	descs := []FieldDescriptor{{Field: "price", Path: "$.data.items[0].lastPrice", Rule: Number}}

	_, err := Extract(d, descs, DefaultFormat())
	var nf *FieldNotFoundError
	require.ErrorAs(t, err, &nf)
	require.Equal(t, "price", nf.Field)
}

func TestExtract_UnparsableValueIsFieldParseError(t *testing.T) {
	d := doc(t, `{"price":"n/a"}`)
	descs := []FieldDescriptor{{Field: "price", Path: "$.price", Rule: Number, Sentinel: "--"}}

	_, err := Extract(d, descs, DefaultFormat())
	var pe *FieldParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "price", pe.Field)
	require.Equal(t, "n/a", pe.Raw)
}

func TestExtract_StrictStopsOnFirstError(t *testing.T) {
	d := doc(t, `{"a":"bad","b":"2"}`)
	descs := []FieldDescriptor{
		{Field: "a", Path: "$.a", Rule: Number},
		{Field: "b", Path: "$.b", Rule: Number},
	}

	out, err := Extract(d, descs, DefaultFormat())
	require.Error(t, err)
	require.Nil(t, out)
}

func TestExtractPartial_IsolatesPerFieldFailures(t *testing.T) {
	d := doc(t, `{"a":"bad","b":"2","c":"--"}`)
	descs := []FieldDescriptor{
		{Field: "a", Path: "$.a", Rule: Number, Sentinel: "--"},
		{Field: "b", Path: "$.b", Rule: Number, Sentinel: "--"},
		{Field: "c", Path: "$.c", Rule: Number, Sentinel: "--"},
		{Field: "d", Path: "$.d", Rule: Number, Sentinel: "--"},
	}

	out, errs := ExtractPartial(d, descs, DefaultFormat())
	require.Len(t, out, 1)
	require.True(t, out["b"].Equal(decimal.NewFromInt(2)))
	require.Len(t, errs, 2) // one parse failure, one missing locator

	var pe *FieldParseError
	require.ErrorAs(t, errs[0], &pe)
	var nfe *FieldNotFoundError
	require.ErrorAs(t, errs[1], &nfe)
	require.Equal(t, "d", nfe.Field)
}
