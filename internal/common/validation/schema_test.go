package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "blood-alert-workers/internal/common/errors"
	"blood-alert-workers/pkg/registry"
)

func newValidator(t *testing.T) *Validator {
	t.Helper()
	v, err := NewValidator(registry.Default())
	require.NoError(t, err)
	return v
}

func TestValidate_SubmitBloodRequest(t *testing.T) {
	tests := []struct {
		name     string
		input    map[string]interface{}
		valid    bool
		badField string
	}{
		{
			name: "valid with unitsRequired",
			input: map[string]interface{}{
				"requestType": "accident", "bloodGroup": "O-", "unitsRequired": float64(3),
				"hospitalId": "H-1", "hospitalName": "City General",
			},
			valid: true,
		},
		{
			name: "valid with legacy units",
			input: map[string]interface{}{
				"requestType": "routine", "bloodGroup": "A+", "units": float64(1), "hospitalName": "City General",
			},
			valid: true,
		},
		{
			name: "unknown blood group",
			input: map[string]interface{}{
				"requestType": "accident", "bloodGroup": "XYZ", "unitsRequired": float64(1), "hospitalName": "City General",
			},
			badField: "bloodGroup",
		},
		{
			name: "zero units",
			input: map[string]interface{}{
				"requestType": "accident", "bloodGroup": "O-", "unitsRequired": float64(0), "hospitalName": "City General",
			},
			badField: "unitsRequired",
		},
		{
			name: "missing hospital name",
			input: map[string]interface{}{
				"requestType": "accident", "bloodGroup": "O-", "unitsRequired": float64(2),
			},
			badField: "hospitalName",
		},
	}

	v := newValidator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := v.Validate(registry.TaskSubmitBloodRequest, tt.input)
			require.NoError(t, err)

			assert.Equal(t, tt.valid, res.Valid, res.GetErrorMessages())
			if tt.valid {
				assert.NoError(t, res.Err())
				return
			}
			assert.True(t, res.HasErrors(tt.badField), res.GetErrorMessages())
			assert.True(t, apperrors.Is(res.Err(), apperrors.ErrCodeValidationFailed))
		})
	}
}

func TestValidate_TriggerAlertScoreRange(t *testing.T) {
	v := newValidator(t)

	res, err := v.Validate(registry.TaskTriggerAlert, map[string]interface{}{
		"hospitalName": "City General", "bloodGroup": "O-", "urgencyScore": float64(140),
	})

	require.NoError(t, err)
	assert.False(t, res.Valid)
	assert.True(t, res.HasErrors("urgencyScore"))
}

func TestValidate_UnknownTaskTypePasses(t *testing.T) {
	res, err := newValidator(t).Validate("unregistered", map[string]interface{}{"x": 1})

	require.NoError(t, err)
	assert.True(t, res.Valid)
}

func TestDecode(t *testing.T) {
	v := newValidator(t)

	var out struct {
		BloodGroup   string `json:"bloodGroup"`
		UrgencyScore int    `json:"urgencyScore"`
	}
	err := v.Decode(registry.TaskTriggerAlert, []byte(`{"hospitalName":"H","bloodGroup":"AB+","urgencyScore":42}`), &out)
	require.NoError(t, err)
	assert.Equal(t, "AB+", out.BloodGroup)
	assert.Equal(t, 42, out.UrgencyScore)

	err = v.Decode(registry.TaskTriggerAlert, []byte(`{"hospitalName":"H","bloodGroup":"AB+"}`), &out)
	require.Error(t, err)
	assert.Equal(t, "urgencyScore", apperrors.AsStandard(err).Metadata["field"])

	err = v.Decode(registry.TaskTriggerAlert, []byte(`[1,2`), &out)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeValidationFailed))
}

func TestValidate_ConfiguredRequestTypes(t *testing.T) {
	reg := registry.Default()
	reg.SetRequestTypes([]string{"accident", "critical-care", "routine", "surgery", "transfusion"})
	v, err := NewValidator(reg)
	require.NoError(t, err)

	input := map[string]interface{}{
		"requestType": "transfusion", "bloodGroup": "B+", "unitsRequired": float64(2), "hospitalName": "City General",
	}
	result, err := v.Validate(registry.TaskSubmitBloodRequest, input)
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = newValidator(t).Validate(registry.TaskSubmitBloodRequest, input)
	require.NoError(t, err)
	assert.False(t, result.Valid)
}
