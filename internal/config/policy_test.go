package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyParse(t *testing.T) {
	p := DefaultPolicy()
	err := p.Parse([]byte(`
elevated_roles: [director]
general_department_id: "1"
allowed_extensions: [PDF, ".Txt", " "]
`))
	require.NoError(t, err)

	assert.Equal(t, []string{"director"}, p.ElevatedRoles)
	assert.Equal(t, []string{"admin"}, p.ReassignRoles, "absent keys keep defaults")
	assert.Equal(t, "1", p.GeneralDepartmentID)
	assert.Equal(t, []string{".pdf", ".txt"}, p.AllowedExtensions)
	assert.Equal(t, int64(50<<20), p.MaxUploadBytes)
	assert.Contains(t, DefaultAllowedExtensions, ".pdf", "defaults must not be mutated")
}

func TestPolicyParseInvalid(t *testing.T) {
	p := DefaultPolicy()
	assert.Error(t, p.Parse([]byte("elevated_roles: {")))
}

func TestParseBusinessHours(t *testing.T) {
	tests := []struct {
		in      string
		want    BusinessHours
		wantErr bool
	}{
		{in: "08-18", want: BusinessHours{Start: 8, End: 18}},
		{in: "0-24", want: BusinessHours{Start: 0, End: 24}},
		{in: "18-08", wantErr: true},
		{in: "8", wantErr: true},
		{in: "a-b", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBusinessHours(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
