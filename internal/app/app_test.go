package app

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/eunmann/athena-summary/pkg/athenaquery"
	"github.com/eunmann/athena-summary/pkg/config"
)

func TestRunnerOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Database = "db"
	cfg.OutputLocation = "s3://stage/"
	cfg.PollInterval = time.Second
	cfg.MaxWait = time.Minute

	got := RunnerOptions(cfg)
	want := athenaquery.Options{
		Database:       "db",
		OutputLocation: "s3://stage/",
		PollInterval:   time.Second,
		MaxWait:        time.Minute,
		MinRemaining:   10 * time.Second,
	}
	if got != want {
		t.Errorf("RunnerOptions = %+v, want %+v", got, want)
	}
}

func TestNewWithAWSConfig(t *testing.T) {
	h := NewWithAWSConfig(config.Default(), aws.Config{Region: "us-east-1"})
	if h == nil {
		t.Fatal("expected handler")
	}
}
