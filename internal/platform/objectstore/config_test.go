package objectstore

import "testing"

func TestConfigValidate(t *testing.T) {
	valid := Config{
		Endpoint:      "localhost:9000",
		AccessKey:     "a",
		SecretKey:     "b",
		Region:        "us-east-1",
		BucketReports: "test-results",
		KeyTemplate:   "{run_id}/junit.xml",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() err=%v", err)
	}

	invalid := valid
	invalid.Endpoint = "http://localhost:9000"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for scheme in endpoint")
	}

	invalid = valid
	invalid.KeyTemplate = "junit.xml"
	if err := invalid.Validate(); err == nil {
		t.Fatalf("Validate() expected error for template without run id")
	}
}

func TestConfigKey(t *testing.T) {
	cfg := Config{KeyTemplate: "results/{run_id}/junit.xml"}
	if got := cfg.Key(" run-1 "); got != "results/run-1/junit.xml" {
		t.Fatalf("Key() got %q", got)
	}
}
