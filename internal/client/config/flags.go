package config

import (
	"github.com/spf13/pflag"
)

// parseFlags applies command-line flags and returns the positional
// arguments (the command and its operands).
//
//	-s, --server string       REST gateway base URL
//	-t, --token-file string   access token location
//	    --timeout duration    HTTP timeout
//	-c, --config string       JSON config file (read by parseJSON)
//
// Flags after the command name are left to the command itself.
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := pflag.NewFlagSet("platerecon", pflag.ContinueOnError)
	fs.SetInterspersed(false)

	fs.StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "REST gateway base URL")
	fs.StringVarP(&cfg.TokenFile, "token-file", "t", cfg.TokenFile, "file holding the access token")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "HTTP request timeout")
	fs.StringP("config", "c", "", "JSON config file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}
