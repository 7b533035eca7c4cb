package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/phrazzld/hierconf/internal/domain"
	"github.com/phrazzld/hierconf/internal/service"
	"github.com/spf13/cobra"
)

// ErrValidationIssues is returned by validate --strict when the tree has
// issues.
var ErrValidationIssues = errors.New("configuration tree has validation issues")

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "migrate [up|down|reset|status|version]",
		Short:       "Manage the database schema",
		Args:        cobra.MaximumNArgs(1),
		ValidArgs:   []string{"up", "down", "reset", "status", "version"},
		Annotations: map[string]string{skipAutoMigrate: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			command := "up"
			if len(args) == 1 {
				command = args[0]
			}
			if !slices.Contains(cmd.ValidArgs, command) {
				return fmt.Errorf("unknown migration command %q", command)
			}
			return c.app.migrate(cmd.Context(), command)
		},
	}
}

func (c *cli) definitionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "definitions",
		Aliases: []string{"defs"},
		Short:   "Manage the definition registry",
	}

	load := &cobra.Command{
		Use:   "load [catalog.yaml]",
		Short: "Define or redefine every key in a YAML catalog",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.app.config.Catalog.Path
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no catalog given and catalog.path is not configured")
			}
			r, closeFn, err := openInput(cmd, path)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := c.app.definitions.LoadCatalog(cmd.Context(), r)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}

	var category string
	list := &cobra.Command{
		Use:   "list",
		Short: "List definitions in registration order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs, err := c.app.definitions.List(cmd.Context(), category)
			if err != nil {
				return err
			}
			return writeJSON(cmd, defs)
		},
	}
	list.Flags().StringVar(&category, "category", "", "only list keys in this category")

	get := &cobra.Command{
		Use:   "get KEY",
		Short: "Show one definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := c.app.definitions.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, def)
		},
	}

	cmd.AddCommand(load, list, get)
	return cmd
}

func (c *cli) orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage programs, clinics and locations",
	}

	var program domain.Program
	createProgram := &cobra.Command{
		Use:   "create-program",
		Short: "Create a program",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.app.hierarchy.CreateProgram(cmd.Context(), &program); err != nil {
				return err
			}
			return writeJSON(cmd, program)
		},
	}
	createProgram.Flags().StringVar(&program.ID, "id", "", "program id (generated from the prefix when empty)")
	createProgram.Flags().StringVar(&program.Name, "name", "", "program name")
	createProgram.Flags().StringVar(&program.Prefix, "prefix", "", "id prefix")
	_ = createProgram.MarkFlagRequired("name")

	var clinic domain.Clinic
	createClinic := &cobra.Command{
		Use:   "create-clinic PROGRAM",
		Short: "Create a clinic under a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clinic.ProgramID = args[0]
			if err := c.app.hierarchy.CreateClinic(cmd.Context(), &clinic); err != nil {
				return err
			}
			return writeJSON(cmd, clinic)
		},
	}
	createClinic.Flags().StringVar(&clinic.ID, "id", "", "clinic id (generated when empty)")
	createClinic.Flags().StringVar(&clinic.Name, "name", "", "clinic name")
	createClinic.Flags().StringVar(&clinic.Code, "code", "", "short clinic code")
	_ = createClinic.MarkFlagRequired("name")

	var location domain.Location
	createLocation := &cobra.Command{
		Use:   "create-location CLINIC",
		Short: "Create an active location under a clinic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			location.ClinicID = args[0]
			if err := c.app.hierarchy.CreateLocation(cmd.Context(), &location); err != nil {
				return err
			}
			return writeJSON(cmd, location)
		},
	}
	createLocation.Flags().StringVar(&location.ID, "id", "", "location id (generated when empty)")
	createLocation.Flags().StringVar(&location.Name, "name", "", "location name")
	createLocation.Flags().StringVar(&location.Code, "code", "", "short location code")
	_ = createLocation.MarkFlagRequired("name")

	setActive := func(use, short string, active bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " LOCATION",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return c.app.hierarchy.SetLocationActive(cmd.Context(), args[0], active)
			},
		}
	}

	programs := &cobra.Command{
		Use:   "programs",
		Short: "List programs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := c.app.hierarchy.Programs(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd, list)
		},
	}

	show := &cobra.Command{
		Use:   "show PROGRAM",
		Short: "Show a program with its clinics and locations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := c.app.hierarchy.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, h)
		},
	}

	find := &cobra.Command{
		Use:   "find-program IDENTIFIER",
		Short: "Find a program by prefix, name or part of its name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := c.app.hierarchy.FindProgram(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, p)
		},
	}

	var relType string
	attach := &cobra.Command{
		Use:   "attach PARENT ATTACHED",
		Short: "Attach a shared service program to a parent program",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rel, err := c.app.hierarchy.AttachProgram(cmd.Context(), args[0], args[1], domain.RelationshipType(relType))
			if err != nil {
				return err
			}
			return writeJSON(cmd, rel)
		},
	}
	attach.Flags().StringVar(&relType, "type", string(domain.RelationshipUses), "uses, requires or optional")

	attached := &cobra.Command{
		Use:   "attached PROGRAM",
		Short: "List the programs attached to a program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := c.app.hierarchy.AttachedPrograms(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, list)
		},
	}

	var clearReq service.ClearRequest
	clearCmd := &cobra.Command{
		Use:   "clear PROGRAM",
		Short: "Remove a program's values, and unless kept its clinics, locations and providers",
		Long: `Remove everything stored below a program before a reimport. Every removed
value gets a delete entry in its history; history itself is never removed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clearReq.ProgramID = args[0]
			report, err := c.app.values.ClearProgram(cmd.Context(), clearReq)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	clearCmd.Flags().BoolVar(&clearReq.KeepStructure, "keep-structure", false, "keep clinics, locations and providers")
	clearCmd.Flags().StringVar(&clearReq.Actor, "actor", "", "who made the change")
	clearCmd.Flags().StringVar(&clearReq.Reason, "reason", "", "why the program is cleared")

	cmd.AddCommand(
		createProgram,
		createClinic,
		createLocation,
		setActive("activate", "Count a location as a leaf again", true),
		setActive("deactivate", "Stop counting a location as a leaf", false),
		programs,
		show,
		find,
		attach,
		attached,
		clearCmd,
	)
	return cmd
}

func (c *cli) providersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "providers",
		Short: "Manage the providers working at each location",
	}

	var req service.AddProviderRequest
	add := &cobra.Command{
		Use:   "add LOCATION",
		Short: "Add a provider to a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.LocationID = args[0]
			p, _, err := c.app.providers.Add(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, p)
		},
	}
	add.Flags().StringVar(&req.Name, "name", "", "provider name")
	add.Flags().StringVar(&req.NPI, "npi", "", "national provider identifier")
	add.Flags().StringVar(&req.Role, "role", "", "role (default "+domain.DefaultProviderRole+")")
	add.Flags().StringVar(&req.Specialty, "specialty", "", "medical specialty")
	add.Flags().BoolVar(&req.FailIfExists, "fail-if-exists", false,
		"fail instead of returning an active provider with the same name")
	_ = add.MarkFlagRequired("name")

	var filter service.ProviderFilter
	list := &cobra.Command{
		Use:   "list",
		Short: "List providers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			providers, err := c.app.providers.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return writeJSON(cmd, providers)
		},
	}
	list.Flags().StringVar(&filter.ProgramID, "program", "", "only providers of this program")
	list.Flags().StringVar(&filter.ClinicID, "clinic", "", "only providers of this clinic")
	list.Flags().StringVar(&filter.LocationID, "location", "", "only providers of this location")
	list.Flags().BoolVar(&filter.IncludeInactive, "all", false, "include deactivated providers")

	var name, npi, role, specialty string
	update := &cobra.Command{
		Use:   "update ID",
		Short: "Change a provider's name, NPI, role or specialty",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProviderID(args[0])
			if err != nil {
				return err
			}
			var u domain.ProviderUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				u.Name = &name
			}
			if flags.Changed("npi") {
				u.NPI = &npi
			}
			if flags.Changed("role") {
				u.Role = &role
			}
			if flags.Changed("specialty") {
				u.Specialty = &specialty
			}
			p, err := c.app.providers.Update(cmd.Context(), id, u)
			if err != nil {
				return err
			}
			return writeJSON(cmd, p)
		},
	}
	update.Flags().StringVar(&name, "name", "", "provider name")
	update.Flags().StringVar(&npi, "npi", "", "national provider identifier")
	update.Flags().StringVar(&role, "role", "", "role")
	update.Flags().StringVar(&specialty, "specialty", "", "medical specialty")

	var reason string
	deactivate := &cobra.Command{
		Use:   "deactivate ID",
		Short: "Deactivate a provider, keeping its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseProviderID(args[0])
			if err != nil {
				return err
			}
			return c.app.providers.Deactivate(cmd.Context(), id, reason)
		},
	}
	deactivate.Flags().StringVar(&reason, "reason", "", "why the provider is deactivated")

	cmd.AddCommand(add, list, update, deactivate)
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	var (
		req       service.SetRequest
		source    string
		effective string
		expires   string
	)
	cmd := &cobra.Command{
		Use:   "set KEY SCOPE VALUE",
		Short: "Store a value at exactly one scope",
		Long: `Store a value at exactly one scope. SCOPE is PROGRAM, PROGRAM/CLINIC or
PROGRAM/CLINIC/LOCATION.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[1])
			if err != nil {
				return err
			}
			req.Key, req.Scope, req.Value = args[0], scope, args[2]
			req.Source = domain.Source(source)
			if req.EffectiveDate, err = parseOptionalTime("effective", effective); err != nil {
				return err
			}
			if req.ExpiryDate, err = parseOptionalTime("expires", expires); err != nil {
				return err
			}

			value, err := c.app.values.Set(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, value)
		},
	}
	cmd.Flags().StringVar(&source, "source", string(domain.SourceManual), "how the value entered the system")
	cmd.Flags().StringVar(&req.SourceDocument, "document", "", "document the value was taken from")
	cmd.Flags().StringVar(&req.Rationale, "rationale", "", "why this scope differs from its parent")
	cmd.Flags().StringVar(&req.Actor, "actor", "", "who made the change")
	cmd.Flags().StringVar(&effective, "effective", "", "RFC 3339 time the value takes effect")
	cmd.Flags().StringVar(&expires, "expires", "", "RFC 3339 time the value expires")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "get KEY SCOPE",
		Short: "Resolve the effective value of a key at a scope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[1])
			if err != nil {
				return err
			}
			if raw {
				value, err := c.app.values.GetRaw(cmd.Context(), args[0], scope)
				if err != nil {
					return err
				}
				return writeJSON(cmd, value)
			}
			result, err := c.app.resolver.Resolve(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "show only the value stored at exactly this scope")
	return cmd
}

func (c *cli) deleteCmd() *cobra.Command {
	var actor, reason string
	cmd := &cobra.Command{
		Use:   "delete KEY SCOPE",
		Short: "Remove the value stored at a scope so it inherits again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[1])
			if err != nil {
				return err
			}
			return c.app.values.Delete(cmd.Context(), args[0], scope, actor, reason)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "who made the change")
	cmd.Flags().StringVar(&reason, "reason", "", "why the value was removed")
	return cmd
}

func (c *cli) chainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chain KEY SCOPE",
		Short: "Show every level of the inheritance chain for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[1])
			if err != nil {
				return err
			}
			links, err := c.app.resolver.ResolveChain(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			return writeJSON(cmd, links)
		},
	}
}

func (c *cli) diffCmd() *cobra.Command {
	var sel service.DiffSelector
	cmd := &cobra.Command{
		Use:   "diff CHILD [PARENT]",
		Short: "Compare resolved values between two scopes",
		Long: `Compare resolved values between two scopes. PARENT defaults to the
scope CHILD inherits from.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			child, err := parseScope(args[0])
			if err != nil {
				return err
			}
			parent := child.Parent()
			if len(args) == 2 {
				if parent, err = parseScope(args[1]); err != nil {
					return err
				}
			}
			diffs, err := c.app.resolver.Diff(cmd.Context(), sel, child, parent)
			if err != nil {
				return err
			}
			return writeJSON(cmd, diffs)
		},
	}
	cmd.Flags().StringVar(&sel.Key, "key", "", "compare only this key")
	cmd.Flags().StringVar(&sel.Category, "category", "", "compare only keys in this category")
	return cmd
}

func (c *cli) validateCmd() *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate PROGRAM",
		Short: "Report missing, stale, orphaned and dangling values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			issues, err := c.app.resolver.Validate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd, issues); err != nil {
				return err
			}
			if strict && len(issues) > 0 {
				return fmt.Errorf("%w: %d found", ErrValidationIssues, len(issues))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when any issue is found")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var (
		since string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history KEY SCOPE",
		Short: "Show the change history of a key at one scope, newest first",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[1])
			if err != nil {
				return err
			}
			from, err := parseOptionalTime("since", since)
			if err != nil {
				return err
			}

			entries := []domain.HistoryEntry{}
			for entry, err := range c.app.recorder.History(cmd.Context(), args[0], scope, timeOrZero(from)) {
				if err != nil {
					return err
				}
				entries = append(entries, entry)
				if limit > 0 && len(entries) == limit {
					break
				}
			}
			return writeJSON(cmd, entries)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "RFC 3339 time of the oldest entry to show")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries (0 for all)")
	return cmd
}

func (c *cli) changesCmd() *cobra.Command {
	var since, until string
	cmd := &cobra.Command{
		Use:   "changes PROGRAM",
		Short: "Show every change recorded under a program, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseOptionalTime("since", since)
			if err != nil {
				return err
			}
			to, err := parseOptionalTime("until", until)
			if err != nil {
				return err
			}

			entries, err := c.app.recorder.ProgramChanges(cmd.Context(), args[0], timeOrZero(from), timeOrZero(to))
			if err != nil {
				return err
			}
			return writeJSON(cmd, entries)
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "RFC 3339 start of the window (inclusive)")
	cmd.Flags().StringVar(&until, "until", "", "RFC 3339 end of the window (exclusive)")
	return cmd
}

func (c *cli) effectiveCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "effective SCOPE",
		Short: "Resolve every key at a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[0])
			if err != nil {
				return err
			}
			results, err := c.app.resolver.EffectiveConfig(cmd.Context(), scope, category)
			if err != nil {
				return err
			}
			return writeJSON(cmd, results)
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only resolve keys in this category")
	return cmd
}

func (c *cli) overridesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "overrides SCOPE",
		Short: "List values stored at a scope next to what they replace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(args[0])
			if err != nil {
				return err
			}
			overrides, err := c.app.resolver.Overrides(cmd.Context(), scope)
			if err != nil {
				return err
			}
			return writeJSON(cmd, overrides)
		},
	}
}

func (c *cli) treeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tree KEY PROGRAM",
		Short: "Resolve a key at every node of a program",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := c.app.resolver.Tree(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd, tree)
		},
	}
}

func (c *cli) propagateCmd() *cobra.Command {
	var req service.PropagateRequest
	cmd := &cobra.Command{
		Use:   "propagate KEY PROGRAM VALUE",
		Short: "Store a value at every clinic of a program",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Key, req.ProgramID, req.Value = args[0], args[1], args[2]
			result, err := c.app.values.Propagate(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd, result)
		},
	}
	cmd.Flags().BoolVar(&req.Force, "force", false, "overwrite clinics that store their own value")
	cmd.Flags().StringVar(&req.Actor, "actor", "", "who made the change")
	return cmd
}

func (c *cli) importCmd() *cobra.Command {
	var (
		actor    string
		reimport bool
	)
	cmd := &cobra.Command{
		Use:   "import PROGRAM FILE",
		Short: "Store parsed records from a JSON Lines file",
		Long: `Store parsed records from a JSON Lines file, one record per line:

  {"mapped_key": "helpdesk_phone", "raw_value": "503-216-6407",
   "scope_hint": {"clinic": "Portland"}, "source_document": "intake.pdf"}

FILE may be - for standard input. Records that fail are reported and do not
stop the rest. With --reimport the program's stored values are cleared first.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[1])
			if err != nil {
				return err
			}
			defer closeFn()

			records, err := readRecords(r)
			if err != nil {
				return err
			}
			if reimport {
				if _, err := c.app.values.ClearProgram(cmd.Context(), service.ClearRequest{
					ProgramID:     args[0],
					KeepStructure: true,
					Actor:         actor,
				}); err != nil {
					return err
				}
			}
			report, err := c.app.values.Import(cmd.Context(), args[0], slices.Values(records), actor)
			if err != nil {
				return err
			}
			return writeJSON(cmd, report)
		},
	}
	cmd.Flags().StringVar(&actor, "actor", "", "who made the change")
	cmd.Flags().BoolVar(&reimport, "reimport", false, "clear the program's values before importing")
	return cmd
}

func parseProviderID(value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid provider id %q", value)
	}
	return id, nil
}

// parseScope reads PROGRAM, PROGRAM/CLINIC or PROGRAM/CLINIC/LOCATION.
func parseScope(value string) (domain.Scope, error) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) > 3 || slices.Contains(parts, "") {
		return domain.Scope{}, fmt.Errorf("%w: %q is not PROGRAM[/CLINIC[/LOCATION]]", domain.ErrInvalidScope, value)
	}
	scope := domain.Scope{ProgramID: parts[0]}
	if len(parts) > 1 {
		scope.ClinicID = parts[1]
	}
	if len(parts) > 2 {
		scope.LocationID = parts[2]
	}
	return scope, scope.Validate()
}

func parseOptionalTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return &t, nil
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// readRecords decodes one ParsedConfig per line, skipping blank lines.
func readRecords(r io.Reader) ([]service.ParsedConfig, error) {
	var records []service.ParsedConfig
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record service.ParsedConfig
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return records, nil
}

// openInput opens path for reading, with - meaning the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
