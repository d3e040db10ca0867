package engine

import "strings"

// cleanRepositoryURL normalizes a package.json "repository" field into a
// browser-accessible HTTPS URL: strips the "git+" prefix and ".git"
// suffix, and rewrites SSH remotes for the common git hosts.
func cleanRepositoryURL(url string) string {
	cleaned := url
	if strings.HasPrefix(cleaned, "git+") {
		cleaned = cleaned[4:]
	}
	if strings.HasSuffix(cleaned, ".git") {
		cleaned = cleaned[:len(cleaned)-4]
	}

	replacements := []struct{ ssh, https string }{
		{"git@github.com:", "https://github.com/"},
		{"git@gitlab.com:", "https://gitlab.com/"},
		{"git@bitbucket.org:", "https://bitbucket.org/"},
	}
	for _, r := range replacements {
		if strings.HasPrefix(cleaned, r.ssh) {
			cleaned = r.https + strings.TrimPrefix(cleaned, r.ssh)
			break
		}
	}
	return cleaned
}

// repositoryURLFromField extracts a repository URL from package.json's
// "repository" field, which npm allows as either a bare string or an
// {type, url} object.
func repositoryURLFromField(field interface{}) *string {
	switch v := field.(type) {
	case string:
		s := cleanRepositoryURL(v)
		return &s
	case map[string]interface{}:
		if u, ok := v["url"].(string); ok {
			s := cleanRepositoryURL(u)
			return &s
		}
	}
	return nil
}

func keywordsFromField(field interface{}) *string {
	arr, ok := field.([]interface{})
	if !ok {
		return nil
	}
	words := make([]string, 0, len(arr))
	for _, w := range arr {
		if s, ok := w.(string); ok {
			words = append(words, s)
		}
	}
	if len(words) == 0 {
		return nil
	}
	joined := strings.Join(words, ",")
	return &joined
}

func stringField(m map[string]interface{}, key string) *string {
	if s, ok := m[key].(string); ok {
		return &s
	}
	return nil
}
