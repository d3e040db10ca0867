package engine

import "testing"

func TestCleanRepositoryURL(t *testing.T) {
	cases := map[string]string{
		"git+https://github.com/user/repo.git": "https://github.com/user/repo",
		"git@github.com:user/repo.git":          "https://github.com/user/repo",
		"https://gitlab.com/user/repo":          "https://gitlab.com/user/repo",
		"git@bitbucket.org:user/repo.git":       "https://bitbucket.org/user/repo",
	}
	for in, want := range cases {
		if got := cleanRepositoryURL(in); got != want {
			t.Errorf("cleanRepositoryURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRepositoryURLFromField(t *testing.T) {
	if got := repositoryURLFromField("git+https://github.com/user/repo.git"); got == nil || *got != "https://github.com/user/repo" {
		t.Fatalf("string form: got %v", got)
	}

	obj := map[string]interface{}{"type": "git", "url": "git@github.com:user/repo.git"}
	if got := repositoryURLFromField(obj); got == nil || *got != "https://github.com/user/repo" {
		t.Fatalf("object form: got %v", got)
	}

	if got := repositoryURLFromField(42); got != nil {
		t.Fatalf("unexpected non-nil result for an unsupported type: %v", got)
	}
}

func TestKeywordsFromField(t *testing.T) {
	arr := []interface{}{"cli", "tool", 7}
	got := keywordsFromField(arr)
	if got == nil || *got != "cli,tool" {
		t.Fatalf("keywordsFromField = %v, want \"cli,tool\"", got)
	}

	if got := keywordsFromField([]interface{}{}); got != nil {
		t.Fatalf("empty array should yield nil, got %v", got)
	}
	if got := keywordsFromField("not-an-array"); got != nil {
		t.Fatalf("non-array input should yield nil, got %v", got)
	}
}
