package invitation

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

//go:embed schema.cue
var schemaCUE string

// LoadMode controls how errors are handled during loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// Error code constants, shared with the CLI output.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No CUE files found
	ErrCodeLoadFailed  = "E004" // CUE load failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeBuildFailed = "E006" // CUE build failed

	ErrCodeSchema        = "E201" // Entry does not unify with #Invitation
	ErrCodeInvalidField  = "E202" // Struct validation failed
	ErrCodeNoInvitations = "E203" // No invitation entries found
	ErrCodeReservedSlug  = "E204" // Slug collides with a preview slug
)

// LoadError is an error found while loading invitations.
type LoadError struct {
	Code    string
	Slug    string
	Field   string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Slug != "" {
		msg = fmt.Sprintf("invitation %s: %s", e.Slug, msg)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, msg)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

// LoadResult contains the invitations loaded from a directory.
type LoadResult struct {
	Invitations []Invitation
	FileCount   int
}

// Load reads every CUE file in dir and compiles its invitation entries in
// slug order. In LoadModeFailFast it returns on the first error.
func Load(dir string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("invitations directory not found: %s", dir)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing invitations directory: %v", err)}}
	}
	if !info.IsDir() {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, []error{&LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, []error{convertCUEError(err, ErrCodeBuildFailed, "")}
	}

	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, []error{err}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error

	entries := value.LookupPath(cue.ParsePath("invitation"))
	if !entries.Exists() {
		return result, []error{&LoadError{Code: ErrCodeNoInvitations, Message: "no invitation entries found"}}
	}
	iter, err := entries.Fields()
	if err != nil {
		return result, []error{convertCUEError(err, ErrCodeGeneric, "")}
	}

	for iter.Next() {
		inv, err := compileEntry(schema, iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			errs = append(errs, err)
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Invitations = append(result.Invitations, *inv)
	}

	if len(result.Invitations) == 0 && len(errs) == 0 {
		errs = append(errs, &LoadError{Code: ErrCodeNoInvitations, Message: "no invitation entries found"})
	}

	sort.Slice(result.Invitations, func(i, j int) bool {
		return result.Invitations[i].ID < result.Invitations[j].ID
	})
	return result, errs
}

// CompileString compiles a single invitation written as a CUE struct (the
// body of an invitation entry). Used by tests and tooling.
func CompileString(slug, src string) (*Invitation, error) {
	ctx := cuecontext.New()
	schema, err := compileSchema(ctx)
	if err != nil {
		return nil, err
	}
	v := ctx.CompileString(src, cue.Filename(slug+".cue"))
	if err := v.Err(); err != nil {
		return nil, convertCUEError(err, ErrCodeBuildFailed, slug)
	}
	return compileEntry(schema, slug, v)
}

func compileSchema(ctx *cue.Context) (cue.Value, *LoadError) {
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := v.Err(); err != nil {
		return cue.Value{}, convertCUEError(err, ErrCodeBuildFailed, "")
	}
	return v.LookupPath(cue.ParsePath("#Invitation")), nil
}

// compileEntry unifies one entry with the schema, decodes it, and runs the
// struct validation rules.
func compileEntry(schema cue.Value, slug string, entry cue.Value) (*Invitation, error) {
	if _, ok := PreviewTemplate(slug); ok {
		return nil, &LoadError{
			Code:    ErrCodeReservedSlug,
			Slug:    slug,
			Message: "slug is reserved for previews",
			Pos:     entry.Pos(),
		}
	}

	v := schema.Unify(entry).FillPath(cue.ParsePath("id"), slug)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, convertCUEError(err, ErrCodeSchema, slug)
	}

	var inv Invitation
	if err := v.Decode(&inv); err != nil {
		return nil, convertCUEError(err, ErrCodeSchema, slug)
	}

	if ferrs := Validate(&inv); len(ferrs) > 0 {
		return nil, &LoadError{
			Code:    ErrCodeInvalidField,
			Slug:    slug,
			Field:   ferrs[0].Field,
			Message: ferrs[0].Message,
			Pos:     entry.Pos(),
		}
	}
	return &inv, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// convertCUEError extracts the first error with position info.
func convertCUEError(err error, code, slug string) *LoadError {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Code: code, Slug: slug, Message: err.Error()}
	}
	first := errs[0]
	le := &LoadError{Code: code, Slug: slug, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		le.Pos = positions[0]
	}
	return le
}
