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

// Package memory is an in-memory reference implementation of
// pkg/repository.Repository, used by the demo CLI and by tests. It is
// grounded on kraklabs-cie's pkg/storage.EmbeddedBackend: a single
// mutex-guarded map store standing in for the embedded CozoDB instance,
// generalized here into one map per entity instead of one Datalog relation.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forgepath/core/pkg/domain"
	"github.com/forgepath/core/pkg/repository"
)

// Store is an in-process, mutex-guarded implementation of
// repository.Repository. Safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	projects map[string]*domain.Project

	contentObjects map[string]*domain.ContentObject
	fileEntries    map[string]map[string]*domain.FileEntry // projectID -> relPath -> entry
	uploads        map[string]*domain.Upload
	uploadsByProj  map[string][]string
	artifactSrcs   map[string]map[string]*domain.ArtifactSource // projectID -> uploadID -> edge

	skills        map[string]domain.Skill            // "name|kind" -> skill
	projectSkills map[string]map[string]domain.Skill // projectID -> "name|kind" -> skill

	analyses map[string]map[string]*domain.CodeAnalysis // projectID -> language -> analysis

	consent       map[string]*domain.ConsentRecord // userID -> record
	globalConsent *domain.ConsentRecord

	generated map[string]*domain.GeneratedItem // "kind|projectID" -> item

	fingerprints map[string]string
	scoreWeights domain.ScoreWeights
}

// New creates an empty Store seeded with the default score weights.
func New() *Store {
	return &Store{
		projects:       make(map[string]*domain.Project),
		contentObjects: make(map[string]*domain.ContentObject),
		fileEntries:    make(map[string]map[string]*domain.FileEntry),
		uploads:        make(map[string]*domain.Upload),
		uploadsByProj:  make(map[string][]string),
		artifactSrcs:   make(map[string]map[string]*domain.ArtifactSource),
		skills:         make(map[string]domain.Skill),
		projectSkills:  make(map[string]map[string]domain.Skill),
		analyses:       make(map[string]map[string]*domain.CodeAnalysis),
		consent:        make(map[string]*domain.ConsentRecord),
		generated:      make(map[string]*domain.GeneratedItem),
		fingerprints:   make(map[string]string),
		scoreWeights:   domain.DefaultScoreWeights(),
	}
}

var _ repository.Repository = (*Store)(nil)

func skillKey(s domain.Skill) string { return string(s.Name) + "|" + string(s.Kind) }

// --- ProjectRepository ---

func (s *Store) Create(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		return fmt.Errorf("memory: project id is required")
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) GetByPath(_ context.Context, relativePath string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.projects {
		if p.RelativePath == relativePath {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) Update(_ context.Context, p *domain.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.projects, id)
	delete(s.fileEntries, id)
	delete(s.artifactSrcs, id)
	delete(s.projectSkills, id)
	delete(s.analyses, id)
	delete(s.fingerprints, id)
	for _, uid := range s.uploadsByProj[id] {
		delete(s.uploads, uid)
	}
	delete(s.uploadsByProj, id)
	return nil
}

func (s *Store) List(_ context.Context) ([]*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Project, 0, len(s.projects))
	for _, p := range s.projects {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Rerank(_ context.Context, entries []repository.RerankEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[int]bool, len(entries))
	for _, e := range entries {
		if seen[e.Rank] {
			return fmt.Errorf("memory: duplicate rank %d in rerank request", e.Rank)
		}
		seen[e.Rank] = true
		if _, ok := s.projects[e.ProjectID]; !ok {
			return repository.ErrNotFound
		}
	}
	for r := 1; r <= len(entries); r++ {
		if !seen[r] {
			return fmt.Errorf("memory: rerank ranks are not exactly {1..%d}", len(entries))
		}
	}
	for _, e := range entries {
		s.projects[e.ProjectID].ImportanceRank = e.Rank
	}
	return nil
}

func (s *Store) SetScoreConfig(_ context.Context, weights domain.ScoreWeights) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scoreWeights = weights
	return nil
}

func (s *Store) GetScoreConfig(_ context.Context) (domain.ScoreWeights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scoreWeights, nil
}

// --- FileRepository ---

func (s *Store) PutContentObject(_ context.Context, obj *domain.ContentObject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.contentObjects[obj.Hash]; exists {
		return nil // idempotent insert
	}
	cp := *obj
	s.contentObjects[obj.Hash] = &cp
	return nil
}

func (s *Store) GetContentObject(_ context.Context, hash string) (*domain.ContentObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.contentObjects[hash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *obj
	return &cp, nil
}

func (s *Store) UpsertFileEntry(_ context.Context, f *domain.FileEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.fileEntries[f.ProjectID]
	if !ok {
		m = make(map[string]*domain.FileEntry)
		s.fileEntries[f.ProjectID] = m
	}
	cp := *f
	m[f.RelativePath] = &cp
	return nil
}

func (s *Store) DeleteFileEntry(_ context.Context, projectID, relativePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.fileEntries[projectID]; ok {
		delete(m, relativePath)
	}
	return nil
}

func (s *Store) ListFileEntries(_ context.Context, projectID string) ([]*domain.FileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.fileEntries[projectID]
	out := make([]*domain.FileEntry, 0, len(m))
	for _, f := range m {
		cp := *f
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RelativePath < out[j].RelativePath })
	return out, nil
}

func (s *Store) GetFileEntry(_ context.Context, projectID, relativePath string) (*domain.FileEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.fileEntries[projectID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f, ok := m[relativePath]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) CreateUpload(_ context.Context, u *domain.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *u
	s.uploads[u.ID] = &cp
	return nil
}

func (s *Store) GetUpload(_ context.Context, id string) (*domain.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.uploads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) ListUploads(_ context.Context, projectID string) ([]*domain.Upload, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.uploadsByProj[projectID]
	out := make([]*domain.Upload, 0, len(ids))
	for _, id := range ids {
		if u, ok := s.uploads[id]; ok {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IngestedAt.Before(out[j].IngestedAt) })
	return out, nil
}

func (s *Store) UpsertArtifactSource(_ context.Context, a *domain.ArtifactSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.artifactSrcs[a.ProjectID]
	if !ok {
		m = make(map[string]*domain.ArtifactSource)
		s.artifactSrcs[a.ProjectID] = m
	}
	cp := *a
	m[a.UploadID] = &cp

	assoc := s.uploadsByProj[a.ProjectID]
	found := false
	for _, id := range assoc {
		if id == a.UploadID {
			found = true
			break
		}
	}
	if !found {
		s.uploadsByProj[a.ProjectID] = append(assoc, a.UploadID)
	}
	return nil
}

func (s *Store) ListArtifactSources(_ context.Context, projectID string) ([]*domain.ArtifactSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.artifactSrcs[projectID]
	out := make([]*domain.ArtifactSource, 0, len(m))
	for _, a := range m {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadID < out[j].UploadID })
	return out, nil
}

// --- SkillRepository ---

func (s *Store) UpsertSkill(_ context.Context, sk domain.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skills[skillKey(sk)] = sk
	return nil
}

func (s *Store) SetProjectSkills(_ context.Context, projectID string, skills []domain.Skill) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	desired := make(map[string]domain.Skill, len(skills))
	for _, sk := range skills {
		desired[skillKey(sk)] = sk
		s.skills[skillKey(sk)] = sk
	}

	existing, ok := s.projectSkills[projectID]
	if !ok {
		existing = make(map[string]domain.Skill)
		s.projectSkills[projectID] = existing
	}

	// Set-difference: remove edges no longer desired, add new ones. Never
	// truncate-and-reinsert blindly.
	for k := range existing {
		if _, keep := desired[k]; !keep {
			delete(existing, k)
		}
	}
	for k, sk := range desired {
		existing[k] = sk
	}
	return nil
}

func (s *Store) ListProjectSkills(_ context.Context, projectID string) ([]domain.Skill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.projectSkills[projectID]
	out := make([]domain.Skill, 0, len(m))
	for _, sk := range m {
		out = append(out, sk)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// --- AnalysisRepository ---

func (s *Store) UpsertCodeAnalysis(_ context.Context, a *domain.CodeAnalysis) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.analyses[a.ProjectID]
	if !ok {
		m = make(map[string]*domain.CodeAnalysis)
		s.analyses[a.ProjectID] = m
	}
	cp := *a
	m[a.Language] = &cp
	return nil
}

func (s *Store) ListCodeAnalyses(_ context.Context, projectID string) ([]*domain.CodeAnalysis, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m := s.analyses[projectID]
	out := make([]*domain.CodeAnalysis, 0, len(m))
	for _, a := range m {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out, nil
}

func (s *Store) DeleteByProject(_ context.Context, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.analyses, projectID)
	return nil
}

// --- ConsentRepository ---

func (s *Store) UpsertConsent(_ context.Context, userID string, c *domain.ConsentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	if userID == "" {
		s.globalConsent = &cp
		return nil
	}
	s.consent[userID] = &cp
	return nil
}

func (s *Store) GetConsent(_ context.Context, userID string) (*domain.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.consent[userID]; ok {
		cp := *c
		return &cp, nil
	}
	if s.globalConsent != nil {
		cp := *s.globalConsent
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetGlobalConsent(_ context.Context) (*domain.ConsentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.globalConsent == nil {
		return nil, repository.ErrNotFound
	}
	cp := *s.globalConsent
	return &cp, nil
}

// --- GeneratedItemRepository ---

func generatedKey(kind, projectID string) string { return kind + "|" + projectID }

func (s *Store) UpsertGeneratedItem(_ context.Context, item *domain.GeneratedItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	s.generated[generatedKey(item.Kind, item.ProjectID)] = &cp
	return nil
}

func (s *Store) GetGeneratedItem(_ context.Context, kind, projectID string) (*domain.GeneratedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.generated[generatedKey(kind, projectID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *item
	return &cp, nil
}

func (s *Store) ListGeneratedItemsByKind(_ context.Context, kind string) ([]*domain.GeneratedItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.GeneratedItem
	for _, item := range s.generated {
		if item.Kind == kind {
			cp := *item
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProjectID < out[j].ProjectID })
	return out, nil
}

// --- FingerprintRepository ---

func (s *Store) GetLastFingerprint(_ context.Context, projectID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fp, ok := s.fingerprints[projectID]
	return fp, ok, nil
}

func (s *Store) SetLastFingerprint(_ context.Context, projectID, fingerprint string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fingerprints[projectID] = fingerprint
	if p, ok := s.projects[projectID]; ok {
		p.LastFingerprint = fingerprint
	}
	return nil
}
