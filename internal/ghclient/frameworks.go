package ghclient

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/muhammadmuzzammil1998/jsonc"
	"gopkg.in/yaml.v3"
)

// maxManifests caps the manifest downloads per repository.
const maxManifests = 6

// manifest pairs a root-level file pattern with the parser for its content.
type manifest struct {
	pattern string
	parse   func(content []byte) []string
}

var manifests = []manifest{
	{"package.json", parseJSONManifest},
	{"deno.json{,c}", parseJSONManifest},
	{"composer.json", parseJSONManifest},
	{"pubspec.y{,a}ml", parsePubspec},
	{"go.mod", tokenParser(goFrameworks)},
	{"{requirements*.txt,pyproject.toml,Pipfile,setup.py}", tokenParser(pythonFrameworks)},
	{"Cargo.toml", tokenParser(rustFrameworks)},
	{"Gemfile", tokenParser(rubyFrameworks)},
	{"{pom.xml,build.gradle,build.gradle.kts}", tokenParser(jvmFrameworks)},
	{"*.{csproj,fsproj}", tokenParser(dotnetFrameworks)},
	{"mix.exs", tokenParser(elixirFrameworks)},
}

var jsFrameworks = map[string]string{
	"react":                    "React",
	"vue":                      "Vue",
	"@angular/core":            "Angular",
	"svelte":                   "Svelte",
	"next":                     "Next.js",
	"nuxt":                     "Nuxt",
	"express":                  "Express",
	"@nestjs/core":             "NestJS",
	"fastify":                  "Fastify",
	"hono":                     "Hono",
	"electron":                 "Electron",
	"jest":                     "Jest",
	"vitest":                   "Vitest",
	"tailwindcss":              "Tailwind CSS",
	"laravel/framework":        "Laravel",
	"symfony/framework-bundle": "Symfony",
}

var dartFrameworks = map[string]string{
	"flutter":      "Flutter",
	"flutter_bloc": "Bloc",
	"riverpod":     "Riverpod",
	"shelf":        "Shelf",
}

var goFrameworks = map[string]string{
	"github.com/gin-gonic/gin": "Gin",
	"github.com/labstack/echo": "Echo",
	"github.com/gofiber/fiber": "Fiber",
	"github.com/go-chi/chi":    "Chi",
	"github.com/spf13/cobra":   "Cobra",
	"gorm.io/gorm":             "GORM",
	"google.golang.org/grpc":   "gRPC",
}

var pythonFrameworks = map[string]string{
	"django":       "Django",
	"flask":        "Flask",
	"fastapi":      "FastAPI",
	"torch":        "PyTorch",
	"tensorflow":   "TensorFlow",
	"pandas":       "pandas",
	"scikit-learn": "scikit-learn",
	"pytest":       "pytest",
}

var rustFrameworks = map[string]string{
	"tokio":     "Tokio",
	"actix-web": "Actix Web",
	"axum":      "Axum",
	"rocket":    "Rocket",
	"bevy":      "Bevy",
	"serde":     "Serde",
}

var rubyFrameworks = map[string]string{
	"rails":   "Rails",
	"sinatra": "Sinatra",
	"rspec":   "RSpec",
}

var jvmFrameworks = map[string]string{
	"spring-boot": "Spring Boot",
	"quarkus":     "Quarkus",
	"micronaut":   "Micronaut",
	"ktor":        "Ktor",
	"junit":       "JUnit",
}

var dotnetFrameworks = map[string]string{
	"microsoft.aspnetcore":          "ASP.NET Core",
	"microsoft.entityframeworkcore": "Entity Framework",
	"xunit":                         "xUnit",
}

var elixirFrameworks = map[string]string{
	"phoenix": "Phoenix",
	"ecto":    "Ecto",
}

// DetectFrameworks implements the DataSource interface.
// Root-level manifests are matched by pattern, downloaded and parsed.
func (c *Client) DetectFrameworks(ctx context.Context, owner, repo string) ([]string, error) {
	_, entries, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, "", nil)
	if isStatus(err, http.StatusNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, mapError(err, "contents of "+owner+"/"+repo)
	}

	found := map[string]struct{}{}
	fetched := 0
	for _, entry := range entries {
		if entry.GetType() != "file" || fetched == maxManifests {
			continue
		}
		parse := matchManifest(entry.GetName())
		if parse == nil {
			continue
		}
		fetched++

		file, _, _, err := c.gh.Repositories.GetContents(ctx, owner, repo, entry.GetPath(), nil)
		if err != nil {
			return nil, mapError(err, entry.GetPath()+" of "+owner+"/"+repo)
		}
		content, err := file.GetContent()
		if err != nil {
			continue
		}
		for _, fw := range parse([]byte(content)) {
			found[fw] = struct{}{}
		}
	}
	return sortedKeys(found), nil
}

// matchManifest returns the parser of the first pattern matching name.
func matchManifest(name string) func([]byte) []string {
	for _, m := range manifests {
		if ok, err := doublestar.Match(m.pattern, name); err == nil && ok {
			return m.parse
		}
	}
	return nil
}

// parseJSONManifest reads dependency names from package.json, deno.json(c) and composer.json.
// Comments are tolerated.
func parseJSONManifest(content []byte) []string {
	var doc struct {
		Dependencies     map[string]any    `json:"dependencies"`
		DevDependencies  map[string]any    `json:"devDependencies"`
		PeerDependencies map[string]any    `json:"peerDependencies"`
		Require          map[string]any    `json:"require"`
		RequireDev       map[string]any    `json:"require-dev"`
		Imports          map[string]string `json:"imports"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(content), &doc); err != nil {
		return nil
	}

	names := []string{}
	for _, deps := range []map[string]any{doc.Dependencies, doc.DevDependencies, doc.PeerDependencies, doc.Require, doc.RequireDev} {
		for name := range deps {
			names = append(names, name)
		}
	}
	// Deno import maps: "react": "npm:react@18"
	for alias, target := range doc.Imports {
		names = append(names, alias, importName(target))
	}
	return lookupAll(names, jsFrameworks)
}

// importName strips the scheme and version of a Deno import specifier.
func importName(spec string) string {
	spec = strings.TrimPrefix(strings.TrimPrefix(spec, "npm:"), "jsr:")
	if at := strings.LastIndex(spec, "@"); at > 0 {
		spec = spec[:at]
	}
	return spec
}

// parsePubspec reads dependency names from a Dart pubspec.
func parsePubspec(content []byte) []string {
	var doc struct {
		Dependencies    map[string]any `yaml:"dependencies"`
		DevDependencies map[string]any `yaml:"dev_dependencies"`
	}
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil
	}
	names := []string{}
	for _, deps := range []map[string]any{doc.Dependencies, doc.DevDependencies} {
		for name := range deps {
			names = append(names, name)
		}
	}
	return lookupAll(names, dartFrameworks)
}

// tokenParser matches manifest tokens against a keyword table.
// A token matches a keyword exactly or as a prefix followed by '/', '-' or '.'.
func tokenParser(table map[string]string) func([]byte) []string {
	return func(content []byte) []string {
		tokens := strings.FieldsFunc(strings.ToLower(string(content)), func(r rune) bool {
			return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || strings.ContainsRune("._/@-", r))
		})

		found := map[string]struct{}{}
		for _, tok := range tokens {
			for kw, fw := range table {
				if tok == kw || strings.HasPrefix(tok, kw+"/") || strings.HasPrefix(tok, kw+"-") || strings.HasPrefix(tok, kw+".") {
					found[fw] = struct{}{}
				}
			}
		}
		return sortedKeys(found)
	}
}

// lookupAll maps dependency names through table, dropping unknown names.
func lookupAll(names []string, table map[string]string) []string {
	found := map[string]struct{}{}
	for _, name := range names {
		if fw, ok := table[strings.ToLower(name)]; ok {
			found[fw] = struct{}{}
		}
	}
	return sortedKeys(found)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
