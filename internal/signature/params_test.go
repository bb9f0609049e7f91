package signature

import (
	"reflect"
	"testing"
)

func TestSplitParams(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   []string
	}{
		{"simple", "a, b", []string{"a", " b"}},
		{"generic stays whole", "Map<string, number>, bool", []string{"Map<string, number>", " bool"}},
		{"nested generics", "Dict<str, List<int>>, flag", []string{"Dict<str, List<int>>", " flag"}},
		{"bracket pair", "t [int, str], u", []string{"t [int, str]", " u"}},
		{"brace pair", "opts {a, b}, c", []string{"opts {a, b}", " c"}},
		{"single token", "a", []string{"a"}},
		{"empty string", "", []string{""}},
		{"stray closer ignored", "a>, b", []string{"a>", " b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitParams(tt.params)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SplitParams(%q) = %#v, want %#v", tt.params, got, tt.want)
			}
		})
	}
}

func TestExtractTypesFromParams(t *testing.T) {
	tests := []struct {
		name   string
		params string
		want   string
	}{
		{"empty", "", "()"},
		{"whitespace only", "   ", "()"},
		{"typescript", "a: number, b: string", "(number, string)"},
		{"optional keeps marker", "a: number, b?: string", "(number, string?)"},
		{"default stripped", "a: number = 5, b: string", "(number, string)"},
		{"python with self", "self, a: int, b: int", "(int, int)"},
		{"self untyped list", "self, a, b", "(a, b)"},
		{"cls dropped", "cls, name", "(name)"},
		{"java", "int a, String b", "(int, String)"},
		{"multi word type", "unsigned int count, char* buf", "(unsigned int, char*)"},
		{"go", "a int, b string", "(int, string)"},
		{"go variadic tail", "a int, opts ...Option", "(int, ...Option)"},
		{"go generic", "m Map<string, number>, flag bool", "(Map<string, number>, bool)"},
		{"python splats pass through", "self, *args, **kwargs", "(*args, **kwargs)"},
		{"typed splat rewrapped", "*args: int", "(*int)"},
		{"typed spread rewrapped", "...items: string[]", "(...string[])"},
		{"php typed", "int $a, ?string $b", "(int, ?string)"},
		{"php untyped with default", "$a, $b = 10", "(a, b)"},
		{"dynamic with default", "a, b = 10", "(a, b)"},
		{"colon without type", "a:, b: int", "(a, int)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractTypesFromParams(tt.params)
			if got != tt.want {
				t.Errorf("ExtractTypesFromParams(%q) = %q, want %q", tt.params, got, tt.want)
			}
		})
	}
}

func TestExtractTypeFromSingleParam(t *testing.T) {
	tests := []struct {
		name  string
		token string
		style ParamStyle
		want  string
		keep  bool
	}{
		{"colon typed", "a: number", StyleColon, "number", true},
		{"colon optional", "b?: string", StyleColon, "string?", true},
		{"colon bare fallback", "a", StyleColon, "a", true},
		{"self dropped", "self", StyleColon, "", false},
		{"this dropped", "this", StyleTypeBefore, "", false},
		{"empty dropped", "   ", StyleDynamic, "", false},
		{"variadic untouched", "*args", StyleDynamic, "*args", true},
		{"variadic typed", "**opts: dict", StyleDynamic, "**dict", true},
		{"type before", "final String name", StyleTypeBefore, "final String", true},
		{"go channel", "out chan int", StyleTypeAfterGo, "chan int", true},
		{"php class type", `App\Models\User $u`, StylePhp, `App\Models\User`, true},
		{"php name only", "$count", StylePhp, "count", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, keep := extractTypeFromSingleParam(tt.token, tt.style)
			if keep != tt.keep {
				t.Fatalf("extractTypeFromSingleParam(%q, %q) keep = %v, want %v", tt.token, tt.style, keep, tt.keep)
			}
			if got != tt.want {
				t.Errorf("extractTypeFromSingleParam(%q, %q) = %q, want %q", tt.token, tt.style, got, tt.want)
			}
		})
	}
}
