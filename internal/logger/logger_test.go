package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo}, // Default to INFO
		{"", slog.LevelInfo},        // Default to INFO
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLogLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig("nonexistent.yaml")
	if err != nil {
		t.Fatalf("LoadConfig returned error for missing file: %v", err)
	}

	if config.Level != "INFO" {
		t.Errorf("Default level = %q, want %q", config.Level, "INFO")
	}
	if !config.ConsoleEnabled {
		t.Error("Default ConsoleEnabled = false, want true")
	}
	if config.ConsoleFormat != "text" {
		t.Errorf("Default ConsoleFormat = %q, want %q", config.ConsoleFormat, "text")
	}
	if config.ConsoleOutput != "stdout" {
		t.Errorf("Default ConsoleOutput = %q, want %q", config.ConsoleOutput, "stdout")
	}
	if config.FileEnabled {
		t.Error("Default FileEnabled = true, want false")
	}
	if config.FilePath != "logs/thornwood.log" {
		t.Errorf("Default FilePath = %q, want %q", config.FilePath, "logs/thornwood.log")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	yamlContent := `logging:
  level: DEBUG
  console_format: json
  console_output: stderr
  file_enabled: true
  file_path: test.log
  file_max_size_mb: 20
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "DEBUG" {
		t.Errorf("Level = %q, want %q", config.Level, "DEBUG")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q", config.ConsoleFormat, "json")
	}
	if config.ConsoleOutput != "stderr" {
		t.Errorf("ConsoleOutput = %q, want %q", config.ConsoleOutput, "stderr")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true")
	}
	if config.FilePath != "test.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "test.log")
	}
	if config.FileMaxSizeMB != 20 {
		t.Errorf("FileMaxSizeMB = %d, want %d", config.FileMaxSizeMB, 20)
	}
	// Keys absent from the file keep their defaults
	if !config.ConsoleEnabled {
		t.Error("ConsoleEnabled = false, want default true")
	}
	if config.FileMaxBackups != 5 {
		t.Errorf("FileMaxBackups = %d, want default 5", config.FileMaxBackups)
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logging.yaml")
	if err := os.WriteFile(path, []byte("logging: [broken"), 0644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadConfig(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if config.Level != "INFO" {
		t.Errorf("Level = %q on error, want default INFO", config.Level)
	}
}

func TestLoadConfigRepositoryFile(t *testing.T) {
	config, err := LoadConfig("../../data/logging.yaml")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if config.FilePath != "logs/thornwood.log" {
		t.Errorf("FilePath = %q, want %q", config.FilePath, "logs/thornwood.log")
	}
}

func TestEnvVarOverride(t *testing.T) {
	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("LOG_CONSOLE_FORMAT", "json")
	t.Setenv("LOG_FILE_ENABLED", "true")
	t.Setenv("LOG_FILE_PATH", "/custom/path.log")

	config, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if config.Level != "ERROR" {
		t.Errorf("Level = %q, want %q (from env var)", config.Level, "ERROR")
	}
	if config.ConsoleFormat != "json" {
		t.Errorf("ConsoleFormat = %q, want %q (from env var)", config.ConsoleFormat, "json")
	}
	if !config.FileEnabled {
		t.Error("FileEnabled = false, want true (from env var)")
	}
	if config.FilePath != "/custom/path.log" {
		t.Errorf("FilePath = %q, want %q (from env var)", config.FilePath, "/custom/path.log")
	}
}

func TestInitializeWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "dungeon.log")
	config := DefaultConfig()
	config.ConsoleEnabled = false
	config.FileEnabled = true
	config.FilePath = path
	config.FileFormat = "json"

	if err := Initialize(config); err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	t.Cleanup(func() { logger = nil })

	Info("Room materialized", "x", 3, "y", 4)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"Room materialized"`) {
		t.Errorf("log file missing message: %s", data)
	}
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, "text", &slog.HandlerOptions{Level: slog.LevelInfo}))
	t.Cleanup(func() { logger = nil })

	Info("Test message", "key", "value")
	Debug("This should not appear") // Below INFO level

	output := buf.String()

	if !strings.Contains(output, "Test message") {
		t.Errorf("Output missing INFO message: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("Output missing structured field: %s", output)
	}
	if strings.Contains(output, "This should not appear") {
		t.Errorf("Output contains DEBUG message when level is INFO: %s", output)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, "json", &slog.HandlerOptions{Level: slog.LevelInfo}))
	t.Cleanup(func() { logger = nil })

	Info("JSON test", "field1", "value1", "field2", 42)

	output := buf.String()

	if !strings.Contains(output, `"msg":"JSON test"`) {
		t.Errorf("Output missing JSON message field: %s", output)
	}
	if !strings.Contains(output, `"field1":"value1"`) {
		t.Errorf("Output missing JSON field: %s", output)
	}
	if !strings.Contains(output, `"field2":42`) {
		t.Errorf("Output missing numeric JSON field: %s", output)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(newHandler(&buf, "text", &slog.HandlerOptions{Level: slog.LevelWarn}))
	t.Cleanup(func() { logger = nil })

	Debug("Debug message")
	Info("Info message")
	Warning("Warning message")
	Error("Error message")

	output := buf.String()

	if strings.Contains(output, "Debug message") || strings.Contains(output, "Info message") {
		t.Errorf("messages below WARN were written: %s", output)
	}
	if !strings.Contains(output, "Warning message") {
		t.Error("WARN message missing from output")
	}
	if !strings.Contains(output, "Error message") {
		t.Error("ERROR message missing from output")
	}
}

func TestMultiHandler(t *testing.T) {
	var buf1, buf2 bytes.Buffer

	handler1 := slog.NewTextHandler(&buf1, &slog.HandlerOptions{Level: slog.LevelInfo})
	handler2 := slog.NewTextHandler(&buf2, &slog.HandlerOptions{Level: slog.LevelError})

	logger = slog.New(newMultiHandler(handler1, handler2))
	t.Cleanup(func() { logger = nil })

	Info("Multi-handler test", "field", "value")
	Error("Both outputs")

	output1 := buf1.String()
	output2 := buf2.String()

	if !strings.Contains(output1, "Multi-handler test") || !strings.Contains(output1, "field=value") {
		t.Errorf("First handler did not receive INFO message: %s", output1)
	}
	if strings.Contains(output2, "Multi-handler test") {
		t.Error("Second handler received a message below its level")
	}
	if !strings.Contains(output1, "Both outputs") || !strings.Contains(output2, "Both outputs") {
		t.Error("ERROR message missing from one of the handlers")
	}
}

func TestMultiHandlerWithAttrs(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&buf1, nil),
		slog.NewTextHandler(&buf2, nil),
	)

	slog.New(h).With("room", "3,4").WithGroup("solver").Info("solved", "decisions", 12)

	for i, out := range []string{buf1.String(), buf2.String()} {
		if !strings.Contains(out, "room=3,4") || !strings.Contains(out, "solver.decisions=12") {
			t.Errorf("handler %d output = %s", i+1, out)
		}
	}
}

func TestNilLogger(t *testing.T) {
	logger = nil

	// These should not panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("Logging with nil logger caused panic: %v", r)
		}
	}()

	Debug("debug")
	Info("info")
	Warning("warning")
	Error("error")
	Slog().Info("discarded")
}
