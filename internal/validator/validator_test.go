package validator

import (
	"strings"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
)

type candidateForm struct {
	Name       string `json:"name" validate:"required,person_name"`
	Phone      string `json:"phone" validate:"required,mobile_phone"`
	Year       string `json:"graduation_year" validate:"required,grad_year"`
	University string `json:"university" validate:"required,institution"`
}

func TestCandidateTags(t *testing.T) {
	v := govalidator.New()
	register(v)

	valid := candidateForm{Name: "Mona Adel", Phone: "01012345678", Year: "2021", University: "Cairo University 2"}

	tests := []struct {
		name      string
		mutate    func(f *candidateForm)
		wantField string
		wantMsg   string
	}{
		{"valid", func(f *candidateForm) {}, "", ""},
		{"arabic name", func(f *candidateForm) { f.Name = "منى عادل" }, "", ""},
		{"digits in name", func(f *candidateForm) { f.Name = "Mona 2" }, "name", "letters and spaces"},
		{"bad prefix", func(f *candidateForm) { f.Phone = "01312345678" }, "phone", "11 digits"},
		{"short phone", func(f *candidateForm) { f.Phone = "0101234567" }, "phone", "11 digits"},
		{"two digit year", func(f *candidateForm) { f.Year = "21" }, "graduation_year", "4-digit"},
		{"symbols in university", func(f *candidateForm) { f.University = "Cairo-Univ." }, "university", "letters, digits"},
		{"missing name", func(f *candidateForm) { f.Name = "" }, "name", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := valid
			tt.mutate(&form)

			err := v.Struct(form)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected validation error")
			}
			fields := TranslateErrors(err)
			msg, ok := fields[tt.wantField]
			if !ok {
				t.Fatalf("no error for %q in %v", tt.wantField, fields)
			}
			if !strings.Contains(msg, tt.wantMsg) {
				t.Errorf("message %q does not mention %q", msg, tt.wantMsg)
			}
		})
	}
}
