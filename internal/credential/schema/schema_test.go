package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	dErrors "custodia/pkg/domain-errors"
)

func TestValidateEnrollment(t *testing.T) {
	r := NewRegistry()

	err := r.Validate("enrollment", map[string]any{
		"institution":   "Aldgate College",
		"program":       "Mathematics BSc",
		"academic_year": "2026/27",
	})
	require.NoError(t, err)
}

func TestValidateMissingRequired(t *testing.T) {
	r := NewRegistry()

	err := r.Validate("enrollment", map[string]any{"institution": "Aldgate College"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestValidateWrongKind(t *testing.T) {
	r := NewRegistry()

	err := r.Validate("course_completion", map[string]any{"course": "Analysis I", "grade": "A"})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	// JSON numbers decode as float64; integers from Go callers also count.
	require.NoError(t, r.Validate("course_completion", map[string]any{"course": "Analysis I", "grade": 72.5}))
	require.NoError(t, r.Validate("course_completion", map[string]any{"course": "Analysis I", "grade": 72}))
}

func TestValidateUnknownClaim(t *testing.T) {
	r := NewRegistry()

	err := r.Validate("tutor_accreditation", map[string]any{
		"subject": "Physics",
		"level":   "A-level",
		"salary":  50000,
	})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestValidateUnknownType(t *testing.T) {
	r := NewRegistry()

	err := r.Validate("diploma", map[string]any{})
	require.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestTypes(t *testing.T) {
	r := NewRegistry()
	require.Equal(t, []string{"course_completion", "enrollment", "tutor_accreditation"}, r.Types())
}
