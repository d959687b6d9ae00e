// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"time"

	pkgerrors "github.com/forgepath/core/internal/errors"
	"github.com/forgepath/core/pkg/analyzers"
	"github.com/forgepath/core/pkg/bullets"
	"github.com/forgepath/core/pkg/contentstore"
	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/gitlog"
	"github.com/forgepath/core/pkg/langdetect"
	"github.com/forgepath/core/pkg/scoring"
	"github.com/forgepath/core/pkg/skills"
)

// runStages executes the analysis steps for a single project: the
// fingerprint skip-gate, then C4->C5->C6->C7 in order when a refresh is
// needed. It also runs C10 so the returned analysis is complete except for
// Score/ScoreBreakdown, which scoreBatch fills in once every project in
// the call has reached this point (C8 needs the whole batch at once).
func (p *Pipeline) runStages(ctx context.Context, projectID string, opts Options) (*domain.ProjectAnalysis, scoring.Input, bool, error) {
	proj, err := p.deps.Repo.Get(ctx, projectID)
	if err != nil {
		return nil, scoring.Input{}, false, err
	}

	fp, err := contentstore.Fingerprint(ctx, p.deps.Repo, projectID)
	if err != nil {
		return nil, scoring.Input{}, false, err
	}

	if !opts.Force {
		if last, ok, err := p.deps.Repo.GetLastFingerprint(ctx, projectID); err == nil && ok && last == fp {
			analysis, input, err := p.buildCachedAnalysis(ctx, proj)
			if err == nil {
				p.deps.metrics().AnalyseSkipped.Inc()
				return analysis, input, true, nil
			}
			p.deps.logger().Warn("pipeline.cache.rebuild_failed", "project", projectID, "err", err)
		}
	}

	if err := ctxErr(ctx); err != nil {
		return nil, scoring.Input{}, false, err
	}

	entries, err := p.deps.Repo.ListFileEntries(ctx, projectID)
	if err != nil {
		return nil, scoring.Input{}, false, err
	}

	type loadedFile struct {
		relativePath string
		content      []byte
	}
	loaded := make([]loadedFile, 0, len(entries))
	fileStats := make([]langdetect.FileStat, 0, len(entries))
	for _, e := range entries {
		obj, err := p.deps.Repo.GetContentObject(ctx, e.ContentHash)
		var size int64
		if err == nil && obj != nil {
			size = obj.Size
		}
		content, err := p.deps.Content.Get(ctx, e.ContentHash)
		if err != nil {
			continue // content was never put, or has since been evicted; skip, never abort the project
		}
		loaded = append(loaded, loadedFile{relativePath: e.RelativePath, content: content})
		stat := langdetect.FileStat{RelativePath: e.RelativePath, Size: size}
		if size == 0 {
			stat.Size = int64(len(content))
		}
		stat.ManifestContent = string(content)
		fileStats = append(fileStats, stat)
	}

	// C4: language/framework detection.
	detectStart := time.Now()
	detectResult := langdetect.Detect(fileStats)
	detectResult.ToProjectFields(proj)
	p.deps.metrics().DetectDuration.Observe(time.Since(detectStart).Seconds())
	p.deps.metrics().DetectRuns.Inc()
	if proj.Language == "" {
		p.deps.metrics().DetectUnresolved.Inc()
	}

	if err := ctxErr(ctx); err != nil {
		return nil, scoring.Input{}, false, err
	}

	root := opts.ProjectRoots[projectID]

	// C7 runs before C5 so skill extraction's conventional-commit and
	// code-review practices can use the commit log already fetched here,
	// never re-walking inputs it has already been
	// given" discipline (C5's signature still lists it after C4 per
	// the usual stage order; only the Git log fetch itself is hoisted).
	gitStart := time.Now()
	git := gitResult(ctx, p.deps.GitProvider, root, p.deps.Identity)
	p.deps.metrics().GitDuration.Observe(time.Since(gitStart).Seconds())
	p.deps.metrics().GitRuns.Inc()
	if git.Metrics == nil {
		p.deps.metrics().GitUnavailable.Inc()
	}

	var commits []gitlog.Commit
	if p.deps.GitProvider != nil && root != "" {
		if c, err := p.deps.GitProvider.Log(ctx, root); err == nil {
			commits = c
		}
	}

	// C5: skill extraction.
	skillsStart := time.Now()
	skillFiles := make([]skills.FileInput, 0, len(loaded))
	for _, f := range loaded {
		content := ""
		if !analyzers.IsProbablyBinary(f.content) {
			content = string(f.content)
		}
		skillFiles = append(skillFiles, skills.FileInput{RelativePath: f.relativePath, Content: content})
	}
	baseline := skills.ExtractBaseline(skills.BaselineInput{Files: skillFiles, Commits: commits})
	skillResult := baseline
	if opts.UseAI && p.deps.Completer != nil && p.deps.Consent != nil && p.deps.Consent.CanUseLLM(ctx, p.deps.UserID) {
		augmenter := skills.NewAugmenter(p.deps.Completer, p.deps.Model, p.deps.logger())
		prompt := buildSkillPrompt(proj, baseline, skillFiles)
		augmented := augmenter.Augment(ctx, baseline, prompt)
		if len(augmented.Tools) == len(baseline.Tools) {
			p.deps.metrics().SkillsAugmentFail.Inc()
		}
		skillResult = augmented
	}
	p.deps.metrics().SkillsDuration.Observe(time.Since(skillsStart).Seconds())
	p.deps.metrics().SkillsRuns.Inc()

	if err := ctxErr(ctx); err != nil {
		return nil, scoring.Input{}, false, err
	}

	// C6: language-specific code analysis, falling back to the generic
	// analyser on ANALYSER_FAILED.
	analyseStart := time.Now()
	analyzerFiles := make([]analyzers.File, 0, len(loaded))
	for _, f := range loaded {
		analyzerFiles = append(analyzerFiles, analyzers.File{RelativePath: f.relativePath, Content: f.content})
	}
	var analysisResult analyzers.Result
	degraded := false
	diagnostic := ""
	if a, ok := analyzers.Get(proj.Language); ok {
		res, err := a.Analyze(ctx, analyzerFiles)
		if err != nil {
			degraded = true
			diagnostic = pkgerrors.NewAnalyserFailed("language analyser failed", err.Error(), "falling back to the generic analyser", err).Error()
			p.deps.metrics().AnalyseFailures.Inc()
			res, _ = analyzers.NewGeneric().Analyze(ctx, analyzerFiles)
		}
		analysisResult = res
	} else {
		analysisResult, _ = analyzers.NewGeneric().Analyze(ctx, analyzerFiles)
	}
	p.deps.metrics().AnalyseDuration.Observe(time.Since(analyseStart).Seconds())
	p.deps.metrics().AnalyseRuns.Inc()

	if err := ctxErr(ctx); err != nil {
		return nil, scoring.Input{}, false, err
	}

	// C7: Git metrics and role.
	gitStart := time.Now()
	git := gitResult(ctx, p.deps.GitProvider, root, p.deps.Identity)
	p.deps.metrics().GitDuration.Observe(time.Since(gitStart).Seconds())
	p.deps.metrics().GitRuns.Inc()
	if git.Metrics == nil {
		p.deps.metrics().GitUnavailable.Inc()
	}

	// Update Project columns with this run's outcomes.
	proj.Role = git.Role
	proj.ContributionPct = git.ContributionPct
	proj.RoleJustification = git.Justification
	proj.IsCollaborative = git.Metrics != nil && git.Metrics.AuthorCount >= 2
	if git.Metrics != nil {
		proj.StartDate = git.Metrics.FirstCommit
		proj.EndDate = git.Metrics.LastCommit
	}
	proj.LastFingerprint = fp
	proj.UpdatedAt = time.Now()

	if err := p.deps.Repo.Update(ctx, proj); err != nil {
		return nil, scoring.Input{}, false, err
	}
	if err := p.deps.Repo.UpsertCodeAnalysis(ctx, &domain.CodeAnalysis{
		ProjectID:   projectID,
		Language:    proj.Language,
		Metrics:     analysisResult.Metrics,
		Features:    analysisResult.Features,
		SummaryText: analysisResult.SummaryText,
		AnalyzedAt:  time.Now(),
	}); err != nil {
		return nil, scoring.Input{}, false, err
	}
	if err := p.deps.Repo.SetProjectSkills(ctx, projectID, skillResult.ToSkills()); err != nil {
		return nil, scoring.Input{}, false, err
	}

	analysis := &domain.ProjectAnalysis{
		ProjectPath:       proj.RelativePath,
		Language:          proj.Language,
		Framework:         proj.Framework,
		Tools:             skillResult.Tools,
		Practices:         skillResult.Practices,
		CodeMetrics:       analysisResult.Metrics,
		LanguageSpecific:  analysisResult.Features,
		Git:               domain.NewGitMetricsView(git.Metrics),
		ContributionPct:   git.ContributionPct,
		Role:              git.Role,
		RoleJustification: git.Justification,
		IsCollaborative:   proj.IsCollaborative,
	}

	// C10: résumé bullets, generated now so scoreBatch only needs to graft
	// Score/ScoreBreakdown on afterward.
	bulletStart := time.Now()
	aiAvailable := p.deps.Completer != nil && p.deps.Consent != nil && p.deps.Consent.CanUseLLM(ctx, p.deps.UserID)
	bulletDeps := bullets.Deps{Completer: p.deps.Completer, Model: p.deps.Model, Logger: p.deps.logger()}
	bs, source := bullets.Generate(ctx, bulletDeps, *analysis, opts.MaxBullets, opts.UseAI, aiAvailable)
	analysis.ResumeBullets = bs
	analysis.ResumeBulletSource = source
	if source == domain.BulletSourceAI {
		p.deps.metrics().BulletsAI.Inc()
	} else {
		p.deps.metrics().BulletsLocal.Inc()
	}
	p.deps.metrics().BulletsDuration.Observe(time.Since(bulletStart).Seconds())

	input := scoring.Input{
		ProjectID:          projectID,
		ContributionPct:    git.ContributionPct,
		SkillCount:         len(skillResult.Tools) + len(skillResult.Practices),
		DurationDays:       durationDays(proj.StartDate, proj.EndDate),
		FileCount:          analysisResult.Metrics.FileCount,
		AnalyserDegraded:   degraded,
		DegradedDiagnostic: diagnostic,
		LastCommit:         unixOrZero(proj.EndDate),
		ProjectName:        proj.DisplayName,
	}

	return analysis, input, false, nil
}

// finishProject persists the fingerprint and the generated bullets once
// scoring has filled in Score/ScoreBreakdown, and writes the final
// importance rank onto the Project row.
func (p *Pipeline) finishProject(ctx context.Context, projectID string, analysis *domain.ProjectAnalysis, rank int, opts Options) error {
	proj, err := p.deps.Repo.Get(ctx, projectID)
	if err != nil {
		return err
	}
	proj.ImportanceScore = analysis.Score
	proj.ImportanceRank = rank
	if err := p.deps.Repo.Update(ctx, proj); err != nil {
		return err
	}

	fp, err := contentstore.Fingerprint(ctx, p.deps.Repo, projectID)
	if err == nil {
		_ = p.deps.Repo.SetLastFingerprint(ctx, projectID, fp, time.Now())
	}

	payload, err := marshalBullets(analysis)
	if err == nil {
		_ = p.deps.Repo.UpsertGeneratedItem(ctx, &domain.GeneratedItem{
			Kind:      "resume_bullets",
			ProjectID: projectID,
			Payload:   payload,
			UpdatedAt: time.Now(),
		})
	}
	return nil
}

// buildCachedAnalysis reassembles a ProjectAnalysis from persisted state
// for the fingerprint skip-gate: no Git or LLM I/O is
// performed, keeping the fingerprint-gate testable in isolation.
func (p *Pipeline) buildCachedAnalysis(ctx context.Context, proj *domain.Project) (*domain.ProjectAnalysis, scoring.Input, error) {
	analyses, err := p.deps.Repo.ListCodeAnalyses(ctx, proj.ID)
	if err != nil {
		return nil, scoring.Input{}, err
	}
	skillRows, err := p.deps.Repo.ListProjectSkills(ctx, proj.ID)
	if err != nil {
		return nil, scoring.Input{}, err
	}

	var tools, practices []string
	for _, s := range skillRows {
		if s.Kind == domain.SkillKindTool {
			tools = append(tools, s.Name)
		} else {
			practices = append(practices, s.Name)
		}
	}

	var metrics domain.CodeMetrics
	var features map[string]any
	for _, a := range analyses {
		if a.Language == proj.Language {
			metrics = a.Metrics
			features = a.Features
			break
		}
	}

	var git *domain.GitMetricsView
	if proj.IsCollaborative || proj.ContributionPct > 0 {
		git = &domain.GitMetricsView{
			FirstCommit: proj.StartDate,
			LastCommit:  proj.EndDate,
		}
	}

	analysis := &domain.ProjectAnalysis{
		ProjectPath:       proj.RelativePath,
		Language:          proj.Language,
		Framework:         proj.Framework,
		Tools:             tools,
		Practices:         practices,
		CodeMetrics:       metrics,
		LanguageSpecific:  features,
		Git:               git,
		ContributionPct:   proj.ContributionPct,
		Role:              proj.Role,
		RoleJustification: proj.RoleJustification,
		IsCollaborative:   proj.IsCollaborative,
		Score:             proj.ImportanceScore,
	}

	if item, err := p.deps.Repo.GetGeneratedItem(ctx, "resume_bullets", proj.ID); err == nil && item != nil {
		bs, source := unmarshalBullets(item.Payload)
		analysis.ResumeBullets = bs
		analysis.ResumeBulletSource = source
	}

	input := scoring.Input{
		ProjectID:       proj.ID,
		ContributionPct: proj.ContributionPct,
		SkillCount:      len(tools) + len(practices),
		DurationDays:    durationDays(proj.StartDate, proj.EndDate),
		FileCount:       metrics.FileCount,
		LastCommit:      unixOrZero(proj.EndDate),
		ProjectName:     proj.DisplayName,
	}

	return analysis, input, nil
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func durationDays(start, end time.Time) float64 {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start).Hours() / 24
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func buildSkillPrompt(proj *domain.Project, baseline skills.Result, files []skills.FileInput) (p struct {
	Languages   []string
	Frameworks  []string
	BaselineSet []string
	Samples     []string
}) {
	p.Languages = []string{proj.Language}
	if proj.Framework != "" {
		p.Frameworks = []string{proj.Framework}
	}
	p.BaselineSet = baseline.Tools
	for i, f := range files {
		if i >= 3 {
			break
		}
		sample := f.Content
		if len(sample) > 500 {
			sample = sample[:500]
		}
		p.Samples = append(p.Samples, sample)
	}
	return p
}
