package storage

import "testing"

func TestTableNames(t *testing.T) {
	cases := []struct {
		name string
		got  string
		want string
	}{
		{"alert", AlertRecord{}.TableName(), "momentum_alerts"},
		{"bar", BarRecord{}.TableName(), "minute_bars"},
		{"flag", FlagRecord{}.TableName(), "momentum_flags"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("%s: got %q, want %q", c.name, c.got, c.want)
		}
	}
}
