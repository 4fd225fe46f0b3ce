package cli

import (
	"github.com/spf13/pflag"

	"github.com/sophia-cli/sop/errs"
	"github.com/sophia-cli/sop/stage"
)

// ParseStage resolves shard[0] against the stage registry and parses the
// remaining elements against that stage's Schema, producing an immutable
// stage.Spec. Flag parsing is local to this shard: nothing here looks at
// sibling stages.
//
// Switch and single-valued flags are parsed by a per-shard
// github.com/spf13/pflag.FlagSet covering ordinary GNU-style flag
// parsing. pflag has no notion of a sentinel-terminated multi-value
// flag, so those are carved out of the shard by a bespoke scan before
// the remainder reaches pflag.
func ParseStage(shard []string) (stage.Spec, *stage.Entry, error) {
	if len(shard) == 0 {
		return stage.Spec{}, nil, errs.Usagef("parse-stage", "empty stage")
	}
	entry, ok := stage.Lookup(shard[0])
	if !ok {
		return stage.Spec{}, nil, errs.Usagef("parse-stage", "unknown stage %q", shard[0])
	}

	remaining, sentinelValues, err := scanSentinels(shard[1:], entry)
	if err != nil {
		return stage.Spec{}, nil, err
	}

	fs := pflag.NewFlagSet(entry.Canonical, pflag.ContinueOnError)
	fs.SetInterspersed(true)
	fs.Usage = func() {}

	type regular struct {
		schema stage.FlagSchema
		sval   *string
		bval   *bool
	}
	var regulars []regular
	for _, f := range entry.Schema.Flags {
		if f.Arity == stage.AritySentinel {
			continue
		}
		r := regular{schema: f}
		switch f.Arity {
		case stage.AritySwitch:
			r.bval = fs.BoolP(f.Long, f.Short, false, "")
		case stage.AritySingle:
			r.sval = fs.StringP(f.Long, f.Short, "", "")
		}
		regulars = append(regulars, r)
	}

	if err := fs.Parse(remaining); err != nil {
		return stage.Spec{}, nil, errs.Usagef(entry.Canonical, "%v", err)
	}

	spec := stage.Spec{
		Kind:       entry.Canonical,
		Options:    make(map[string][]string),
		Positional: fs.Args(),
	}
	for k, v := range sentinelValues {
		spec.Options[k] = v
	}
	for _, r := range regulars {
		if !fs.Changed(r.schema.Long) {
			continue
		}
		switch r.schema.Arity {
		case stage.AritySwitch:
			spec.Options[r.schema.Long] = []string{}
		case stage.AritySingle:
			spec.Options[r.schema.Long] = []string{*r.sval}
		}
	}

	if n := len(spec.Positional); n < entry.Schema.MinPositionals {
		return stage.Spec{}, nil, errs.Usagef(entry.Canonical,
			"expected at least %d positional argument(s), got %d", entry.Schema.MinPositionals, n)
	}
	if n, max := len(spec.Positional), entry.Schema.MaxPositionals; max >= 0 && n > max {
		return stage.Spec{}, nil, errs.Usagef(entry.Canonical,
			"expected at most %d positional argument(s), got %d", max, n)
	}
	return spec, entry, nil
}

// scanSentinels removes every occurrence of a sentinel-arity flag (and its
// mandatory terminator-bounded value run) from args, returning the
// remainder for pflag to parse and the collected values keyed by the
// flag's long name.
func scanSentinels(args []string, entry *stage.Entry) ([]string, map[string][]string, error) {
	byToken := map[string]stage.FlagSchema{}
	for _, f := range entry.Schema.Flags {
		if f.Arity != stage.AritySentinel {
			continue
		}
		if f.Long != "" {
			byToken["--"+f.Long] = f
		}
		if f.Short != "" {
			byToken["-"+f.Short] = f
		}
	}
	if len(byToken) == 0 {
		return args, nil, nil
	}

	var remaining []string
	values := map[string][]string{}
	for i := 0; i < len(args); i++ {
		a := args[i]
		fs, ok := byToken[a]
		if !ok {
			remaining = append(remaining, a)
			continue
		}
		if fs.Terminator == "" {
			return nil, nil, errs.Usagef(entry.Canonical, "flag %q has no terminator declared", a)
		}
		var vals []string
		i++
		terminated := false
		for ; i < len(args); i++ {
			if args[i] == fs.Terminator {
				terminated = true
				break
			}
			vals = append(vals, args[i])
		}
		if !terminated {
			return nil, nil, errs.Usagef(entry.Canonical,
				"flag %q requires at least one value followed by the terminator %q", a, fs.Terminator)
		}
		if len(vals) == 0 {
			return nil, nil, errs.Usagef(entry.Canonical,
				"flag %q given with no values before terminator %q", a, fs.Terminator)
		}
		values[fs.Long] = append(values[fs.Long], vals...)
	}
	return remaining, values, nil
}

// ParseAll splits argv and parses every shard, returning one Spec per
// stage in pipeline order.
func ParseAll(argv []string) ([]stage.Spec, []*stage.Entry, error) {
	shards, err := Split(argv)
	if err != nil {
		return nil, nil, err
	}
	specs := make([]stage.Spec, len(shards))
	entries := make([]*stage.Entry, len(shards))
	for i, shard := range shards {
		spec, entry, err := ParseStage(shard)
		if err != nil {
			return nil, nil, err
		}
		specs[i] = spec
		entries[i] = entry
	}
	return specs, entries, nil
}
