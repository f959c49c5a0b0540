// Package policy loads and merges the pip install-policy document: a
// base file shipped with the host plus a writable user override file,
// per spec.md §4.1. Load failures degrade to an empty document and are
// logged; they are never raised to the caller (spec.md §7, Config
// errors).
package policy

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"

	"github.com/pkg/errors"

	"github.com/comfy-org/cnpip/internal/models"
)

// placeholderUserDocument is written the first time a user policy file
// is created, so the file is valid JSON and self-documenting.
const placeholderUserDocument = `{
  "_comment": "User overrides for the pip install policy. Whole-package replacement: a package listed here replaces the base rule entirely."
}
`

var (
	cacheOnce sync.Once
	cached    models.PolicyDocument
)

// Get returns the merged policy document, loading and caching it on the
// first call for the remainder of the process. Subsequent calls with
// different paths still return the first-loaded document — the cache is
// process-wide by design (spec.md §4.1, §5).
func Get(basePath, userPath string, logger *slog.Logger) models.PolicyDocument {
	cacheOnce.Do(func() {
		cached = Load(basePath, userPath, logger)
	})
	return cached
}

// Load reads and merges the base and user documents without touching the
// process-wide cache. Exposed for tests and for callers that need an
// explicit re-read (out of scope per spec.md §3.1, but useful to have as
// a building block).
func Load(basePath, userPath string, logger *slog.Logger) models.PolicyDocument {
	if logger == nil {
		logger = slog.Default()
	}

	base := readDocument(basePath, logger, false)
	user := readDocument(userPath, logger, true)

	return merge(base, user)
}

// readDocument loads one policy file into a document, degrading to an
// empty document on any I/O or JSON error. If createIfMissing is true
// and the file does not exist, a placeholder is written so the file is
// ready for external tooling to edit (spec.md §6).
func readDocument(path string, logger *slog.Logger, createIfMissing bool) models.PolicyDocument {
	if path == "" {
		return models.PolicyDocument{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if createIfMissing {
				if werr := os.WriteFile(path, []byte(placeholderUserDocument), 0o644); werr != nil {
					logger.Warn("failed to create placeholder policy file", "path", path, "error", werr)
				}
			} else {
				logger.Error("policy file missing, treating as empty", "path", path)
			}
			return models.PolicyDocument{}
		}
		logger.Error("failed to read policy file, treating as empty", "path", path, "error", err)
		return models.PolicyDocument{}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Error("failed to parse policy file, treating as empty", "path", path, "error", errors.WithStack(err))
		return models.PolicyDocument{}
	}
	// The placeholder's "_comment" entry is documentation, not a rule.
	delete(raw, "_comment")

	doc := make(models.PolicyDocument, len(raw))
	for name, msg := range raw {
		var rule models.PackageRule
		if err := json.Unmarshal(msg, &rule); err != nil {
			logger.Error("failed to parse policy file, treating as empty", "path", path, "package", name, "error", errors.WithStack(err))
			return models.PolicyDocument{}
		}
		doc[name] = rule
	}

	return validateRules(doc, path, logger)
}

// validateRules drops individual rules whose directives are missing a
// required field for their type, logging a warning per dropped rule so
// the rest of the document stays usable (SPEC_FULL.md §3, a refinement
// of the base parse-failure behavior).
func validateRules(doc models.PolicyDocument, path string, logger *slog.Logger) models.PolicyDocument {
	out := make(models.PolicyDocument, len(doc))
	for name, rule := range doc {
		if err := validateRule(rule); err != nil {
			logger.Warn("dropping invalid policy rule", "path", path, "package", name, "error", err)
			continue
		}
		out[name] = rule
	}
	return out
}

func validateRule(rule models.PackageRule) error {
	for _, d := range rule.Uninstall {
		if d.Target == "" {
			return errors.New("uninstall directive missing target")
		}
	}
	for _, d := range rule.ApplyFirstMatch {
		switch d.Type {
		case models.DirectiveSkip:
		case models.DirectiveForceVersion:
			if d.Version == "" {
				return errors.New("force_version directive missing version")
			}
		case models.DirectiveReplace:
			if d.Replacement == "" {
				return errors.New("replace directive missing replacement")
			}
		default:
			return errors.Errorf("unknown apply_first_match directive type %q", d.Type)
		}
	}
	for _, d := range rule.ApplyAllMatches {
		switch d.Type {
		case models.DirectivePinDependencies:
			if len(d.PinnedPackages) == 0 {
				return errors.New("pin_dependencies directive missing pinned_packages")
			}
		case models.DirectiveInstallWith:
			if len(d.AdditionalPackages) == 0 {
				return errors.New("install_with directive missing additional_packages")
			}
		case models.DirectiveWarn:
			if d.Message == "" {
				return errors.New("warn directive missing message")
			}
		default:
			return errors.Errorf("unknown apply_all_matches directive type %q", d.Type)
		}
	}
	for _, d := range rule.Restore {
		if d.Target == "" || d.Version == "" {
			return errors.New("restore directive missing target or version")
		}
	}
	return nil
}

// merge applies spec.md's whole-package-replace rule: start from base,
// then for every package in user, replace the entire PackageRule.
func merge(base, user models.PolicyDocument) models.PolicyDocument {
	merged := make(models.PolicyDocument, len(base)+len(user))
	for name, rule := range base {
		merged[name] = rule
	}
	for name, rule := range user {
		merged[name] = rule
	}
	return merged
}
