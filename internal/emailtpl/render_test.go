package emailtpl

import (
	"reflect"
	"testing"
)

func TestRender(t *testing.T) {
	vars := map[string]string{"user_name": "John Doe", "company_name": "Acme"}

	tests := []struct {
		name string
		in   string
		vars map[string]string
		want string
	}{
		{"неизвестный плейсхолдер остаётся", "Hi {{user_name}}, {{unknown}}", vars, "Hi John Doe, {{unknown}}"},
		{"все вхождения", "{{user_name}} / {{user_name}}", vars, "John Doe / John Doe"},
		{"несколько ключей", "{{company_name}}: {{user_name}}", vars, "Acme: John Doe"},
		{"пробелы внутри не плейсхолдер", "{{ user_name }}", vars, "{{ user_name }}"},
		{"одинарные скобки", "{user_name}", vars, "{user_name}"},
		{"пустой текст", "", vars, ""},
		{"пустая карта", "{{user_name}}", nil, "{{user_name}}"},
		{
			"значение не рендерится повторно",
			"{{a}}",
			map[string]string{"a": "{{user_name}}", "user_name": "X"},
			"{{user_name}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Render(tt.in, tt.vars); got != tt.want {
				t.Errorf("Render(%q) = %q, ожидается %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRender_DefaultSampleData(t *testing.T) {
	got := Render("Hi {{user_name}}, {{unknown}}", DefaultSampleData())
	if got != "Hi John Doe, {{unknown}}" {
		t.Errorf("Render() = %q", got)
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{b}} {{a}} {{b}} {{c.d}} {{ x }}")
	want := []string{"b", "a", "c.d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Placeholders() = %v, ожидается %v", got, want)
	}
	if Placeholders("без переменных") != nil {
		t.Error("ожидается nil для текста без плейсхолдеров")
	}
}

func TestUndeclared(t *testing.T) {
	got := Undeclared([]string{"user_name"}, "Тема {{user_name}} {{typo}}", "Тело {{typo}} {{extra}}")
	want := []string{"typo", "extra"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Undeclared() = %v, ожидается %v", got, want)
	}
}

func TestMerge(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	got := Merge(base, map[string]string{"b": "3", "c": "4"})
	want := map[string]string{"a": "1", "b": "3", "c": "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Merge() = %v, ожидается %v", got, want)
	}
	if base["b"] != "2" {
		t.Error("Merge() не должен изменять base")
	}
}
