package cmd

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/buildenv/internal/codes"
)

func TestWhich(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    string
		wantErr bool
	}{
		{
			name: "found",
			args: []string{"which", "clang", "ar"},
			want: "/usr/bin/clang\n/usr/bin/ar\n",
		},
		{
			name:    "missing",
			args:    []string{"which", "clang", "swiftc"},
			want:    "/usr/bin/clang\nswiftc: not found\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakeTools(t, "swiftc")

			stdout, _, err := execute(t, tt.args...)
			assert.Equal(t, tt.want, stdout)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, codes.ErrToolNotFound))
				assert.Equal(t, codes.Failure, codes.ExitCode(err))
				return
			}

			require.NoError(t, err)
		})
	}
}

func TestWhich_RequiresName(t *testing.T) {
	fakeTools(t)

	_, _, err := execute(t, "which")
	assert.Error(t, err)
}
