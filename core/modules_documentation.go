package core

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/huangsam/devscore/schema"
	"github.com/microcosm-cc/bluemonday"
)

// targetReadmeLength saturates the length sub-score (characters of plain text).
const targetReadmeLength = 2000.0

var (
	headingPattern = regexp.MustCompile(`(?m)^#{1,6}\s+(.+)$`)
	htmlPattern    = regexp.MustCompile(`(?i)<(h[1-6]|p|div|table|img|br)[\s>/]`)

	// sectionKeywords groups heading words that count as the same section.
	sectionKeywords = [][]string{
		{"install", "setup", "getting started", "quick start", "quickstart"},
		{"usage", "example", "how to", "tutorial"},
		{"contribut", "development", "building"},
		{"license", "licence"},
	}

	readmeConverter = converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	readmePolicy = bluemonday.StrictPolicy()
)

// readmeStats is what the documentation module keeps of one README.
type readmeStats struct {
	present  bool
	length   int
	sections float64 // share of sectionKeywords groups found
}

// analyzeDocumentation scores README, license and description coverage.
func analyzeDocumentation(ctx context.Context, in *moduleInput) (schema.DocumentationReport, error) {
	if len(in.repos) == 0 {
		return schema.DocumentationReport{}, errNoRepositories
	}

	stats, err := fanOutRepos(ctx, in.workers, in.repos, func(ctx context.Context, r schema.Repository) (readmeStats, error) {
		readme, err := in.source.GetReadme(ctx, r.Owner, r.Name)
		if err != nil {
			return readmeStats{}, err
		}
		return measureReadme(readme), nil
	})
	if err != nil {
		return schema.DocumentationReport{}, err
	}

	n := float64(len(in.repos))
	var withReadme, withLicense, withDescription, totalLength int
	var sections float64
	for i, r := range in.repos {
		if stats[i].present {
			withReadme++
			totalLength += stats[i].length
			sections += stats[i].sections
		}
		if r.License != "" {
			withLicense++
		}
		if strings.TrimSpace(r.Description) != "" {
			withDescription++
		}
	}

	report := schema.DocumentationReport{
		ReposAnalyzed:       len(in.repos),
		ReadmeCoverage:      round2(float64(withReadme) / n),
		SectionCoverage:     round2(sections / n),
		LicenseCoverage:     round2(float64(withLicense) / n),
		DescriptionCoverage: round2(float64(withDescription) / n),
		AnalyzedAt:          in.dataset.AsOf,
	}
	if withReadme > 0 {
		report.AverageReadmeLength = round2(float64(totalLength) / float64(withReadme))
	}

	lengthScore := clamp(report.AverageReadmeLength/targetReadmeLength, 0, 1)
	report.Score = round2(10 * (0.35*report.ReadmeCoverage +
		0.20*lengthScore +
		0.20*report.SectionCoverage +
		0.15*report.LicenseCoverage +
		0.10*report.DescriptionCoverage))
	return report, nil
}

// measureReadme normalizes a README to markdown text and measures it.
// READMEs written in HTML without any markdown heading are converted first;
// inline tags left in markdown READMEs are stripped.
func measureReadme(readme string) readmeStats {
	readme = strings.TrimSpace(readme)
	if readme == "" {
		return readmeStats{}
	}
	if !headingPattern.MatchString(readme) && htmlPattern.MatchString(readme) {
		if md, err := readmeConverter.ConvertString(readme); err == nil {
			readme = md
		}
	}
	text := readmePolicy.Sanitize(readme)

	found := 0
	headings := strings.ToLower(strings.Join(headingTexts(text), "\n"))
	for _, group := range sectionKeywords {
		for _, kw := range group {
			if strings.Contains(headings, kw) {
				found++
				break
			}
		}
	}
	return readmeStats{
		present:  true,
		length:   utf8.RuneCountInString(text),
		sections: float64(found) / float64(len(sectionKeywords)),
	}
}

func headingTexts(text string) []string {
	var out []string
	for _, m := range headingPattern.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}
