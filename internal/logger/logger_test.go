package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestPlainFormatter_SessionPrefixAndFieldSkipping(t *testing.T) {
	ts := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		name    string
		data    logrus.Fields
		message string
		want    string
	}{
		{
			name: "with session",
			data: logrus.Fields{
				"component": "engine",
				"session":   "s1",
				"caller":    "x.go:1",
				"round":     2,
			},
			message: "dispatching batch",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [engine] [session=s1] dispatching batch round=2\n",
		},
		{
			name: "without session",
			data: logrus.Fields{
				"component": "tools",
				"caller":    "x.go:1",
				"foo":       "bar",
			},
			message: "hello",
			want:    "x.go:1 [2025-01-02T03:04:05Z] [INFO] [tools] hello foo=bar\n",
		},
		{
			name:    "bare",
			data:    logrus.Fields{},
			message: "plain",
			want:    "[2025-01-02T03:04:05Z] [INFO] plain\n",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			entry := &logrus.Entry{
				Logger:  logrus.New(),
				Time:    ts,
				Level:   logrus.InfoLevel,
				Message: tc.message,
				Data:    tc.data,
			}
			out, err := (PlainFormatter{}).Format(entry)
			if err != nil {
				t.Fatalf("Format() error: %v", err)
			}
			if got := string(out); got != tc.want {
				t.Fatalf("unexpected format:\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}

func TestSetLevel(t *testing.T) {
	prev := Root().GetLevel()
	t.Cleanup(func() { Root().SetLevel(prev) })

	if err := SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel(debug) error: %v", err)
	}
	if Root().GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v, want debug", Root().GetLevel())
	}
	if err := SetLevel(""); err != nil {
		t.Fatalf("SetLevel(\"\") error: %v", err)
	}
	if err := SetLevel("loud"); err == nil {
		t.Fatalf("SetLevel(loud) expected error")
	}
}

func TestNamed_WritesComponentThroughRoot(t *testing.T) {
	var buf bytes.Buffer
	prevOut, prevFormatter := Root().Out, Root().Formatter
	t.Cleanup(func() {
		Root().SetOutput(prevOut)
		Root().SetFormatter(prevFormatter)
	})
	Root().SetOutput(&buf)
	Root().SetFormatter(PlainFormatter{})

	Named("engine").WithField("session", "s-1").Info("round done")

	got := buf.String()
	if !strings.Contains(got, "[engine] [session=s-1] round done") {
		t.Fatalf("unexpected log line: %q", got)
	}
}

func TestStdLLMLogger_RequestAndResponse(t *testing.T) {
	buf := new(bytes.Buffer)
	l := logrus.New()
	l.SetOutput(buf)
	l.SetFormatter(PlainFormatter{})
	l.SetLevel(logrus.DebugLevel)

	llm := NewLLMLogger(l)
	llm.Request("gpt-test", []LLMMessage{
		{Role: "user", Content: "line1\nline2"},
		{Role: "assistant", Calls: []string{"1:get_weather"}},
		{Role: "tool", CallID: "1", Content: "{}"},
	}, 3, 1)
	llm.Response("gpt-test", "", []string{"2:get_weather"}, 1)
	llm.Error("gpt-test", errors.New("boom"), 2)

	out := buf.String()
	for _, want := range []string{
		"-> request attempt=1 model=gpt-test messages=3 tools=3",
		`content=line1\nline2`,
		"calls=1:get_weather",
		"call_id=1",
		"<- response attempt=1 model=gpt-test calls=2:get_weather",
		"!! error attempt=2 model=gpt-test err=boom",
		"[llm]",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in log output:\n%s", want, out)
		}
	}
}
