package quickbooks

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/qbwriter/internal/domain"
)

func TestClassifyFault_JSON(t *testing.T) {
	body := []byte(`{"Fault":{"type":"ValidationFault","Error":[{"Message":"Duplicate Document Number Error","Detail":"DocNumber=DOC-1 already exists.","code":"6140","element":"DocNumber"}]},"time":"2024-05-01T00:00:00.000-07:00"}`)

	fault, err := classifyFault("application/json;charset=UTF-8", body, true)

	require.NoError(t, err)
	require.Len(t, fault.Errors, 1)
	assert.Equal(t, "ValidationFault", fault.Type)
	assert.Equal(t, "Duplicate Document Number Error", fault.Errors[0].Message)
	assert.Equal(t, "DocNumber=DOC-1 already exists.", fault.Errors[0].Detail)
	assert.Equal(t, "6140", fault.Errors[0].Code)
	assert.Equal(t, "DocNumber", fault.Errors[0].Element)
}

func TestClassifyFault_XMLTwoErrors(t *testing.T) {
	body := []byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<IntuitResponse xmlns="http://schema.intuit.com/finance/v3" time="2024-05-01T00:00:00.000-07:00">
  <Fault type="ValidationFault">
    <Error code="2010" element="Line.Amount">
      <Message>Invalid Number</Message>
      <Detail>Amount is not a valid number</Detail>
    </Error>
    <Error code="6240" element="DocNumber">
      <Message>Duplicate Document Number Error</Message>
      <Detail>You must specify a different number.</Detail>
    </Error>
  </Fault>
</IntuitResponse>`)

	fault, err := classifyFault("application/xml", body, true)

	require.NoError(t, err)
	require.Len(t, fault.Errors, 2)
	assert.Equal(t, "ValidationFault", fault.Type)
	assert.Equal(t, "2010", fault.Errors[0].Code)
	assert.Equal(t, "Line.Amount", fault.Errors[0].Element)
	assert.Equal(t, "Invalid Number", fault.Errors[0].Message)
	assert.Equal(t, "Amount is not a valid number", fault.Errors[0].Detail)
	assert.Equal(t, "6240", fault.Errors[1].Code)
	assert.Equal(t, "Duplicate Document Number Error", fault.Errors[1].Message)
}

func TestClassifyFault_XMLForeignNamespaceIgnored(t *testing.T) {
	body := []byte(`<Fault xmlns="http://example.com/other"><Error code="1"><Message>nope</Message></Error></Fault>`)

	_, err := classifyFault("text/xml", body, true)

	var parseErr *domain.ResponseParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestClassifyFault_UnparseableStrict(t *testing.T) {
	_, err := classifyFault("text/html", []byte("<html>Service Unavailable</html>"), true)

	var parseErr *domain.ResponseParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, parseErr.Body, "Service Unavailable")
}

func TestClassifyFault_UnparseableLenient(t *testing.T) {
	fault, err := classifyFault("text/plain", []byte("something broke"), false)

	require.NoError(t, err)
	require.Len(t, fault.Errors, 1)
	assert.Equal(t, "something broke", fault.Errors[0].Detail)
}

func TestClassifyFault_JSONWithoutFaultLenient(t *testing.T) {
	// Valid JSON that is not the fault envelope still produces a synthetic
	// fault under lenient policy.
	fault, err := classifyFault("application/json", []byte(`{"warnings":[]}`), false)

	require.NoError(t, err)
	require.Len(t, fault.Errors, 1)
}
