package flagx

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	serverFlags := []string{"-a", "-g", "-d", "-s", "-t", "-m", "-l"}

	tests := []struct {
		name    string
		args    []string
		allowed []string
		want    []string
	}{
		{
			name:    "server flags kept, config flag dropped",
			args:    []string{"-c", "server.yaml", "-a", ":8000", "-m", "/srv/models"},
			allowed: serverFlags,
			want:    []string{"-a", ":8000", "-m", "/srv/models"},
		},
		{
			name:    "equals form",
			args:    []string{"--config=alt.json", "-t=15"},
			allowed: []string{"-c", "--config"},
			want:    []string{"--config=alt.json"},
		},
		{
			name:    "flag without value at end",
			args:    []string{"-l"},
			allowed: serverFlags,
			want:    []string{"-l"},
		},
		{
			name:    "next dash token is not a value",
			args:    []string{"-d", "-s", "secret"},
			allowed: serverFlags,
			want:    []string{"-d", "-s", "secret"},
		},
		{
			name:    "positional arguments dropped",
			args:    []string{"serve", "-g", ":50051", "extra"},
			allowed: serverFlags,
			want:    []string{"-g", ":50051"},
		},
		{
			name:    "repeated flag keeps order",
			args:    []string{"-t", "5", "-t", "10"},
			allowed: serverFlags,
			want:    []string{"-t", "5", "-t", "10"},
		},
		{
			name:    "empty",
			args:    nil,
			allowed: serverFlags,
			want:    []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterArgs(tt.args, tt.allowed)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("FilterArgs() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	t.Run("short -c with value", func(t *testing.T) {
		assert.Equal(t, "/path/short.yaml", ConfigFileFlag([]string{"-c", "/path/short.yaml"}))
	})

	t.Run("long -config with value", func(t *testing.T) {
		assert.Equal(t, "/path/long.json", ConfigFileFlag([]string{"-config", "/path/long.json"}))
	})

	t.Run("double dash with equals", func(t *testing.T) {
		assert.Equal(t, "/path/eq.yml", ConfigFileFlag([]string{"-a", ":8000", "--config=/path/eq.yml"}))
	})

	t.Run("unknown flags are ignored", func(t *testing.T) {
		assert.Empty(t, ConfigFileFlag([]string{"-x", "1", "-y", "2"}))
	})

	t.Run("multiple flags, last wins", func(t *testing.T) {
		assert.Equal(t, "/path/2.json", ConfigFileFlag([]string{"-c", "/path/1.json", "-config", "/path/2.json"}))
	})
}
