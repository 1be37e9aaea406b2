package envstruct_test

import (
	"strings"
	"testing"
	"time"

	"github.com/myrjola/phq9bot/internal/envstruct"
	"github.com/stretchr/testify/require"
)

func noEnv(_ string) (string, bool) { return "", false }

func TestPopulate(t *testing.T) {
	type args struct {
		v         any
		lookupEnv func(string) (string, bool)
	}
	tests := []struct {
		name    string
		args    args
		want    any
		wantErr error
	}{
		{
			name:    "nil",
			args:    args{v: nil, lookupEnv: noEnv},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name:    "not pointer",
			args:    args{v: struct{}{}, lookupEnv: noEnv},
			wantErr: envstruct.ErrInvalidValue,
		},
		{
			name: "empty struct",
			args: args{v: &struct{}{}, lookupEnv: noEnv},
			want: &struct{}{},
		},
		{
			name: "empty env",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					APIKey string `env:"OPENAI_API_KEY"`
				}{},
				lookupEnv: noEnv,
			},
			wantErr: envstruct.ErrEnvNotSet,
		},
		{
			name: "picks correct env variable",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Addr       string `env:"PHQ9_ADDR"`
					Model      string `env:"PHQ9_MODEL"`
					OtherValue string
				}{},
				lookupEnv: func(s string) (string, bool) { return strings.ToLower(s), true },
			},
			want: &struct {
				Addr       string
				Model      string
				OtherValue string
			}{Addr: "phq9_addr", Model: "phq9_model", OtherValue: ""},
		},
		{
			name: "handles default values of all supported types",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Model       string        `env:"PHQ9_MODEL" envDefault:"gpt-4o"`
					MaxSessions int           `env:"PHQ9_MAX_SESSIONS" envDefault:"1024"`
					Debug       bool          `env:"PHQ9_DEBUG" envDefault:"true"`
					Timeout     time.Duration `env:"PHQ9_LLM_TIMEOUT" envDefault:"20s"`
				}{},
				lookupEnv: noEnv,
			},
			want: &struct {
				Model       string
				MaxSessions int
				Debug       bool
				Timeout     time.Duration
			}{Model: "gpt-4o", MaxSessions: 1024, Debug: true, Timeout: 20 * time.Second},
		},
		{
			name: "environment overrides default",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					TTL time.Duration `env:"PHQ9_SESSION_TTL" envDefault:"2h"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "15m", true },
			},
			want: &struct {
				TTL time.Duration
			}{TTL: 15 * time.Minute},
		},
		{
			name: "invalid int",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					MaxSessions int `env:"PHQ9_MAX_SESSIONS"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "many", true },
			},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "invalid duration",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					TTL time.Duration `env:"PHQ9_SESSION_TTL"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "forever", true },
			},
			wantErr: envstruct.ErrParse,
		},
		{
			name: "unsupported type",
			args: args{
				v: &struct { //nolint:exhaustruct // populated later
					Ratio float64 `env:"PHQ9_RATIO"`
				}{},
				lookupEnv: func(_ string) (string, bool) { return "0.5", true },
			},
			wantErr: envstruct.ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.args.v
			err := envstruct.Populate(v, tt.args.lookupEnv)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				require.EqualValues(t, tt.want, v)
			}
		})
	}
}
