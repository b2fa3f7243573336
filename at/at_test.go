package at_test

import (
	"testing"

	"i4.energy/across/ltelink/at"
)

func TestCommandBuilders(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{
			name:     "Open TCP session",
			got:      at.Open("db.example.com", 12607),
			expected: `AT+CAOPEN=0,0,"TCP","db.example.com",12607`,
		},
		{
			name:     "Send prompt request",
			got:      at.Send(42),
			expected: "AT+CASEND=0,42",
		},
		{
			name:     "Network mode",
			got:      at.NetworkMode(38),
			expected: "AT+CNMP=38",
		},
		{
			name:     "Band mode",
			got:      at.BandMode(1),
			expected: "AT+CMNB=1",
		},
		{
			name:     "Band config with bands",
			got:      at.BandConfig("CAT-M", 2, 4, 5),
			expected: `AT+CBANDCFG="CAT-M",2,4,5`,
		},
		{
			name:     "Band config without bands",
			got:      at.BandConfig("NB-IOT"),
			expected: `AT+CBANDCFG="NB-IOT"`,
		},
		{
			name:     "PDP context",
			got:      at.PDPContext("em"),
			expected: `AT+CGDCONT=1,"IP","em"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, tt.got)
			}
		})
	}
}

func TestResult(t *testing.T) {
	table := at.Result(at.SessionOpened)

	ok := table.Tokens(at.KindSuccess)
	if len(ok) != 1 || ok[0] != at.SessionOpened {
		t.Errorf("unexpected success tokens: %v", ok)
	}

	fail := table.Tokens(at.KindFailure)
	if len(fail) != 3 {
		t.Errorf("expected generic failure set of 3 tokens, got: %v", fail)
	}
	for _, want := range []string{at.ERROR, at.CmeError, at.CmsError} {
		found := false
		for _, tok := range fail {
			if tok == want {
				found = true
			}
		}
		if !found {
			t.Errorf("failure set missing %q: %v", want, fail)
		}
	}
}

func TestSendResult(t *testing.T) {
	ok := at.SendResult.Tokens(at.KindSuccess)
	expected := []string{at.DataIndication, at.SendOK, at.OK}
	if len(ok) != len(expected) {
		t.Fatalf("unexpected success tokens: %v", ok)
	}
	for i, tok := range expected {
		if ok[i] != tok {
			t.Errorf("success token %d: expected %q, got %q", i, tok, ok[i])
		}
	}

	fail := at.SendResult.Tokens(at.KindFailure)
	if len(fail) != 5 {
		t.Errorf("expected 5 failure tokens, got: %v", fail)
	}
	if fail[0] != at.SendFail {
		t.Errorf("expected SEND FAIL first in failure set, got %q", fail[0])
	}
}

func TestParseCSQ(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected int
		wantErr  bool
	}{
		{
			name:     "Typical reply",
			input:    "AT+CSQ\r\n+CSQ: 15,99\r\nOK\r\n",
			expected: 15,
		},
		{
			name:     "Strong signal",
			input:    "+CSQ: 31,0\r\nOK",
			expected: 31,
		},
		{
			name:     "Unknown quality",
			input:    "+CSQ: 99,99\r\nOK",
			expected: at.QualityUnknown,
		},
		{
			name:     "Out of range treated as unknown",
			input:    "+CSQ: 45,0\r\nOK",
			expected: at.QualityUnknown,
		},
		{
			name:     "Missing field",
			input:    "OK\r\n",
			expected: at.QualityUnknown,
			wantErr:  true,
		},
		{
			name:     "Malformed reply",
			input:    "+CSQ: abc,99",
			expected: at.QualityUnknown,
			wantErr:  true,
		},
		{
			name:     "Missing BER field",
			input:    "+CSQ: 15",
			expected: at.QualityUnknown,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := at.ParseCSQ(tt.input)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if q != tt.expected {
				t.Errorf("expected quality %d, got %d", tt.expected, q)
			}
		})
	}
}
