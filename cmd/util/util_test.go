package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := "The client identifier sent with CONNECT (letters, digits and spaces). A random identifier is used if empty"
	wrapped := WrapString(text)

	for _, line := range strings.Split(wrapped, "\n") {
		if len(line) > Wrap {
			t.Errorf("line exceeds %d characters: %q", Wrap, line)
		}
	}
	if strings.Join(strings.Fields(wrapped), " ") != text {
		t.Errorf("wrapping changed the text: %q", wrapped)
	}
}

func TestGetClientConfigFromEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("SKV_ENDPOINT", "example.org:5000")
	t.Setenv("SKV_ID", "Alice")
	t.Setenv("SKV_INSECURE_SKIP_HOSTNAME", "true")
	t.Setenv("SKV_TIMEOUT", "3")

	InitConfig()
	config := GetClientConfig()

	if config.Endpoint != "example.org:5000" {
		t.Errorf("unexpected endpoint %q", config.Endpoint)
	}
	if config.ClientID != "Alice" {
		t.Errorf("unexpected client id %q", config.ClientID)
	}
	if !config.InsecureSkipHostname {
		t.Errorf("expected hostname verification to be skipped")
	}
	if config.TimeoutSecond != 3 {
		t.Errorf("unexpected timeout %d", config.TimeoutSecond)
	}
}
