package format

import "testing"

func TestBudget(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", "-"},
		{"미정", "미정"},
		{"1,500,000,000천원", "1.5조원"},
		{"2345678901", "2.3조원"},
		{"450000000", "5억원"},
		{"149999999", "1억원"},
		{"35000", "4만원"},
		{"10000", "1만원"},
		{"9999", "9,999원"},
		{"0", "0원"},
		{"123456789012345678901234", "123456789012345.7조원"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := Budget(tt.raw); got != tt.want {
				t.Errorf("Budget(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestGradeClass(t *testing.T) {
	tests := map[string]string{
		"A급 직접관련": "grade-a",
		"B급 간접관련": "grade-b",
		"C급 정책참고": "grade-c",
		"미분류":     "",
		"":        "",
	}
	for grade, want := range tests {
		if got := GradeClass(grade); got != want {
			t.Errorf("GradeClass(%q) = %q, want %q", grade, got, want)
		}
	}
}

func TestScoreClass(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{300, "score-high"},
		{250, "score-high"},
		{249.9, "score-medium"},
		{150, "score-medium"},
		{149, "score-low"},
		{0, "score-low"},
	}
	for _, tt := range tests {
		if got := ScoreClass(tt.score); got != tt.want {
			t.Errorf("ScoreClass(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestCount(t *testing.T) {
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count = %q", got)
	}
	if got := Count(0); got != "0" {
		t.Errorf("Count = %q", got)
	}
}
