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

// Package archive ingests one uploaded ZIP archive, extracts it to a scratch
// directory, and discovers candidate sub-project roots within it. Discovery
// and exclusion follow kraklabs-cie's pkg/ingestion/repo_loader.go, adapted
// from "load one cloned repo" to "find possibly many project roots inside
// one extracted archive".
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	pkgerrors "github.com/forgepath/core/internal/errors"
)

// vcsMarkers are version-control metadata directories that mark a project
// root.
var vcsMarkers = []string{".git", ".hg", ".svn"}

// manifestFiles are language-specific manifest filenames that also mark a
// project root.
var manifestFiles = []string{
	"go.mod", "package.json", "requirements.txt", "pyproject.toml", "setup.py",
	"pom.xml", "build.gradle", "build.gradle.kts", "Cargo.toml", "Gemfile",
	"composer.json", "CMakeLists.txt", "Makefile", "*.csproj", "*.sln",
}

// File is one extracted file: its path relative to the archive root and its
// raw content.
type File struct {
	RelativePath string
	Data         []byte
}

// ProjectCandidate is a discovered project root emitted by Discover (spec
// §4.2): a name derived from the directory basename, its relative path
// within the archive, the files found under it (after ignore filtering),
// and whether it carries its own VCS metadata.
type ProjectCandidate struct {
	Name        string
	RelPath     string
	Files       []File
	GitPresent  bool
	FileCount   int
}

// ExtractResult is the outcome of extracting and scanning one archive.
type ExtractResult struct {
	Candidates []ProjectCandidate
	// SkipReasons tallies PERMISSION_DENIED and other non-fatal skip counts
	// encountered while walking the archive.
	SkipReasons map[string]int
}

// maxArchiveEntries is a hard safety cap independent of the configured
// uncompressed-size limit, guarding against zip bombs with huge entry counts.
const maxArchiveEntries = 200_000

// Extract reads a ZIP archive from r (size bytes long), rejects it with
// INVALID_ARCHIVE if malformed, rejects with ARCHIVE_TOO_LARGE if its
// uncompressed size exceeds maxUncompressedBytes (0 disables the cap), and
// returns the discovered project candidates after ignore-pattern filtering.
func Extract(ctx context.Context, logger *slog.Logger, r io.ReaderAt, size int64, maxUncompressedBytes int64, ignoreGlobs []string) (*ExtractResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, pkgerrors.NewInvalidArchive(
			"uploaded file is not a well-formed ZIP archive",
			err.Error(),
			"re-export the archive and re-upload",
			err,
		)
	}
	if len(zr.File) > maxArchiveEntries {
		return nil, pkgerrors.NewArchiveTooLarge(
			"archive contains too many entries",
			fmt.Sprintf("%d entries exceeds the %d entry cap", len(zr.File), maxArchiveEntries),
			"split the archive into smaller uploads",
			nil,
		)
	}

	var totalUncompressed int64
	for _, f := range zr.File {
		totalUncompressed += int64(f.UncompressedSize64)
	}
	if maxUncompressedBytes > 0 && totalUncompressed > maxUncompressedBytes {
		return nil, pkgerrors.NewArchiveTooLarge(
			"archive exceeds the configured size limit",
			fmt.Sprintf("uncompressed size %d bytes exceeds the %d byte cap", totalUncompressed, maxUncompressedBytes),
			"split the archive or raise the configured archive size limit",
			nil,
		)
	}

	patterns := ignoreGlobs
	if len(patterns) == 0 {
		patterns = DefaultIgnorePatterns
	}

	skipReasons := make(map[string]int)
	type walkedFile struct {
		relPath string
		data    []byte
	}
	var files []walkedFile
	dirSet := make(map[string]bool)

	for _, f := range zr.File {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		name := strings.TrimPrefix(filepath.ToSlash(f.Name), "/")
		if name == "" {
			continue
		}
		if f.FileInfo().IsDir() {
			dirSet[strings.TrimSuffix(name, "/")] = true
			continue
		}
		if MatchesAny(name, patterns) {
			skipReasons["excluded"]++
			continue
		}

		rc, err := f.Open()
		if err != nil {
			logger.Warn("archive.extract.open_error", "path", name, "err", err)
			skipReasons["permission_denied"]++
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			logger.Warn("archive.extract.read_error", "path", name, "err", err)
			skipReasons["permission_denied"]++
			continue
		}

		files = append(files, walkedFile{relPath: name, data: data})
		// Register every ancestor directory so discovery can see implicit
		// directories that zip writers sometimes omit as explicit entries.
		dir := filepath.Dir(name)
		for dir != "." && dir != "/" && dir != "" {
			dirSet[dir] = true
			dir = filepath.Dir(dir)
		}
	}

	roots := discoverRoots(dirSet, files)

	candidates := make([]ProjectCandidate, 0, len(roots))
	for _, root := range roots {
		var cfiles []File
		for _, wf := range files {
			if root == "." {
				cfiles = append(cfiles, File{RelativePath: wf.relPath, Data: wf.data})
				continue
			}
			if wf.relPath == root || strings.HasPrefix(wf.relPath, root+"/") {
				rel := strings.TrimPrefix(wf.relPath, root+"/")
				cfiles = append(cfiles, File{RelativePath: rel, Data: wf.data})
			}
		}
		name := filepath.Base(root)
		if root == "." {
			relPaths := make([]string, len(files))
			for i, wf := range files {
				relPaths[i] = wf.relPath
			}
			name = fallbackName(relPaths)
		}
		candidates = append(candidates, ProjectCandidate{
			Name:       name,
			RelPath:    root,
			Files:      cfiles,
			GitPresent: dirSet[joinRoot(root, ".git")],
			FileCount:  len(cfiles),
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].RelPath < candidates[j].RelPath })

	return &ExtractResult{Candidates: candidates, SkipReasons: skipReasons}, nil
}

// fallbackName derives a candidate name for the content-root fallback (rule
// 4 of discoverRoots: no manifest or VCS marker found anywhere) from the
// archive's own layout, rather than a fixed sentinel: when every file sits
// under one shared top-level directory, that directory's basename is the
// name (spec.md's "demo/main.py, demo/README.md" scenario names the project
// "demo"); otherwise the basename of the longest common path prefix across
// all files is used; a flat archive with no shared directory at all falls
// back to "root".
func fallbackName(relPaths []string) string {
	if len(relPaths) == 0 {
		return "root"
	}

	topDirs := make(map[string]bool)
	for _, p := range relPaths {
		if idx := strings.Index(p, "/"); idx >= 0 {
			topDirs[p[:idx]] = true
		} else {
			topDirs[""] = true
		}
	}
	if len(topDirs) == 1 {
		for d := range topDirs {
			if d != "" {
				return d
			}
		}
	}

	if prefix := commonPathPrefix(relPaths); prefix != "" {
		return filepath.Base(prefix)
	}
	return "root"
}

// commonPathPrefix returns the longest sequence of leading directory
// components shared by every path in relPaths (the final, filename,
// component of each path is never part of the prefix).
func commonPathPrefix(relPaths []string) string {
	var common []string
	for i, p := range relPaths {
		dirs := strings.Split(p, "/")
		dirs = dirs[:len(dirs)-1]
		if i == 0 {
			common = dirs
			continue
		}
		common = commonPrefixSlices(common, dirs)
		if len(common) == 0 {
			break
		}
	}
	return strings.Join(common, "/")
}

func commonPrefixSlices(a, b []string) []string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}

func joinRoot(root, name string) string {
	if root == "." {
		return name
	}
	return root + "/" + name
}

// discoverRoots implements deterministic top-down discovery
// rule: a directory is a project root if it has VCS metadata, a recognised
// manifest file, or (failing both) is the content root and nothing deeper
// qualified. A discovered root shadows its descendants.
func discoverRoots(dirSet map[string]bool, files []walkedFile) []string {
	haveManifest := make(map[string]bool)
	haveVCS := make(map[string]bool)

	for _, wf := range files {
		dir := filepath.Dir(wf.relPath)
		if dir == "." {
			dir = "."
		}
		base := filepath.Base(wf.relPath)
		for _, m := range manifestFiles {
			if matchManifest(base, m) {
				haveManifest[dir] = true
			}
		}
	}
	for dir := range dirSet {
		base := filepath.Base(dir)
		parent := filepath.Dir(dir)
		if parent == "." {
			parent = "."
		}
		for _, marker := range vcsMarkers {
			if base == marker {
				haveVCS[parent] = true
			}
		}
	}

	candidates := make(map[string]bool)
	for d := range haveManifest {
		candidates[d] = true
	}
	for d := range haveVCS {
		candidates[d] = true
	}

	if len(candidates) == 0 {
		return []string{"."}
	}

	// Sort shortest-path-first so that shallower roots are considered
	// before deeper ones; a root shadows any candidate that is its
	// descendant (rule 3).
	sorted := make([]string, 0, len(candidates))
	for d := range candidates {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return depth(sorted[i]) < depth(sorted[j]) || (depth(sorted[i]) == depth(sorted[j]) && sorted[i] < sorted[j])
	})

	var roots []string
	for _, d := range sorted {
		shadowed := false
		for _, r := range roots {
			if isDescendant(d, r) {
				shadowed = true
				break
			}
		}
		if !shadowed {
			roots = append(roots, d)
		}
	}
	sort.Strings(roots)
	return roots
}

func depth(path string) int {
	if path == "." {
		return 0
	}
	return len(strings.Split(path, "/"))
}

func isDescendant(path, ancestor string) bool {
	if ancestor == "." {
		return path != "."
	}
	return path == ancestor || strings.HasPrefix(path, ancestor+"/")
}

func matchManifest(base, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return base == pattern
	}
	return MatchesGlob(base, pattern)
}

// WriteScratch materialises a candidate's files under dir, useful when a
// downstream tool (the Git capability contract, a language analyser
// subprocess) needs real files on disk rather than in-memory bytes.
func WriteScratch(dir string, files []File) error {
	for _, f := range files {
		dest := filepath.Join(dir, filepath.FromSlash(f.RelativePath))
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, f.Data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
