package core

import (
	"context"
	"time"

	"github.com/huangsam/devscore/schema"
)

// activeWindow is how recently a repository must have been pushed to count as maintained.
const activeWindow = 180 * 24 * time.Hour

// repoHealth holds the per-repository numbers fetched by the health module.
type repoHealth struct {
	contributors int
	branches     int
}

// analyzeHealth scores maintenance, community and structure of the analyzed repositories.
func analyzeHealth(ctx context.Context, in *moduleInput) (schema.HealthReport, error) {
	if len(in.repos) == 0 {
		return schema.HealthReport{}, errNoRepositories
	}

	counts, err := fanOutRepos(ctx, in.workers, in.repos, func(ctx context.Context, r schema.Repository) (repoHealth, error) {
		contributors, err := in.source.CountContributors(ctx, r.Owner, r.Name)
		if err != nil {
			return repoHealth{}, err
		}
		branches, err := in.source.CountBranches(ctx, r.Owner, r.Name)
		if err != nil {
			return repoHealth{}, err
		}
		return repoHealth{contributors: contributors, branches: branches}, nil
	})
	if err != nil {
		return schema.HealthReport{}, err
	}

	n := float64(len(in.repos))
	asOf := in.dataset.AsOf
	var active, contributors, branches, stars, forks, openIssues int
	var structure float64
	for i, r := range in.repos {
		if asOf.Sub(r.PushedAt) <= activeWindow {
			active++
		}
		contributors += counts[i].contributors
		branches += counts[i].branches
		stars += r.Stars
		forks += r.Forks
		openIssues += r.OpenIssues
		structure += repoStructure(r, counts[i])
	}

	report := schema.HealthReport{
		ReposAnalyzed:       len(in.repos),
		ActiveRepoRatio:     round2(float64(active) / n),
		AverageContributors: round2(float64(contributors) / n),
		AverageBranches:     round2(float64(branches) / n),
		AnalyzedAt:          asOf,
	}

	// Many open issues per repository weigh against maintenance
	issueLoad := clamp(float64(openIssues)/n/50, 0, 1)
	report.MaintenanceScore = round2(10 * (0.7*report.ActiveRepoRatio + 0.3*(1-issueLoad)))
	report.CommunityScore = round2(0.4*10*clamp(report.AverageContributors/5, 0, 1) +
		0.35*logScale(stars, 1000) +
		0.25*logScale(forks, 200))
	report.StructureScore = round2(10 * structure / n)
	report.Score = round2(0.4*report.MaintenanceScore + 0.3*report.CommunityScore + 0.3*report.StructureScore)
	return report, nil
}

// repoStructure rates the project hygiene of one repository on 0-1.
func repoStructure(r schema.Repository, h repoHealth) float64 {
	var s float64
	if r.License != "" {
		s += 0.3
	}
	if r.Description != "" {
		s += 0.2
	}
	if len(r.Topics) > 0 {
		s += 0.2
	}
	if h.branches > 1 {
		s += 0.15
	}
	if r.HasPages || r.HasWiki {
		s += 0.15
	}
	return s
}
