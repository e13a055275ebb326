package main

import (
	"testing"

	"github.com/dopplerkit/dopplermcp/doppler"
)

func TestParseSecretArgs(t *testing.T) {
	t.Run("name=value pairs", func(t *testing.T) {
		secrets, err := parseSecretArgs([]string{"API_KEY=abc", "DB_URL=postgres://x"})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if secrets["API_KEY"] != "abc" || secrets["DB_URL"] != "postgres://x" {
			t.Errorf("secrets = %v", secrets)
		}
	})

	t.Run("single name value pair", func(t *testing.T) {
		secrets, err := parseSecretArgs([]string{"TOKEN", "a=b=c"})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if secrets["TOKEN"] != "a=b=c" {
			t.Errorf("secrets = %v", secrets)
		}
	})

	t.Run("value containing equals", func(t *testing.T) {
		secrets, err := parseSecretArgs([]string{"CONN=host=db;port=5432"})
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if secrets["CONN"] != "host=db;port=5432" {
			t.Errorf("secrets = %v", secrets)
		}
	})

	t.Run("rejects bare names", func(t *testing.T) {
		if _, err := parseSecretArgs([]string{"API_KEY"}); err == nil {
			t.Error("expected error")
		}
		if _, err := parseSecretArgs([]string{"=value"}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestScope(t *testing.T) {
	if _, _, err := scope(doppler.Config{Project: "demo"}); err == nil {
		t.Error("expected error without config")
	}
	if _, _, err := scope(doppler.Config{ConfigName: "dev"}); err == nil {
		t.Error("expected error without project")
	}

	project, config, err := scope(doppler.Config{Project: "demo", ConfigName: "dev"})
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	if project != "demo" || config != "dev" {
		t.Errorf("scope = %s/%s", project, config)
	}
}
