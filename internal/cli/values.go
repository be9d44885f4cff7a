package cli

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/sqlcfg/pkg/sqlcfg"
	"github.com/mesh-intelligence/sqlcfg/pkg/types"
)

const kindAuto = "auto"

var errNoValue = errors.New("no value stored")

// valueOutput is the JSON form of a single value.
type valueOutput struct {
	Path  string `json:"path"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func newGetCmd(a *app) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Print the value stored at a path",
		Long: "Get prints the value stored at a dotted path. With --type auto the\n" +
			"stored kind is used; booleans are stored as integers.\n\n" +
			"Example:\n" +
			"  sqlcfg get server.port\n" +
			"  sqlcfg get server.onlinemode --type bool",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGet(cmd, args[0], kindName)
		},
	}
	cmd.Flags().StringVarP(&kindName, "type", "t", kindAuto, "value type: auto, int, long, double, string or bool")
	return cmd
}

func (a *app) runGet(cmd *cobra.Command, path, kindName string) error {
	f, err := a.openFile()
	if err != nil {
		return err
	}
	defer f.Close()

	v, err := readValue(f.Section, path, kindName)
	if err != nil {
		return err
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), valueOutput{Path: path, Type: v.Kind().String(), Value: v.Interface()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), v.String())
	return nil
}

// readValue reads path as kindName, or with its stored kind for "auto".
func readValue(s *sqlcfg.Section, path, kindName string) (types.Value, error) {
	if kindName == kindAuto {
		v, ok, err := s.Get(path)
		if err != nil {
			return types.Null(), err
		}
		if !ok {
			return types.Null(), fmt.Errorf("%w at %s", errNoValue, path)
		}
		return v, nil
	}

	kind, err := types.ParseKind(kindName)
	if err != nil {
		return types.Null(), err
	}
	ok, err := s.Contains(path)
	if err != nil {
		return types.Null(), err
	}
	if !ok {
		return types.Null(), fmt.Errorf("%w at %s", errNoValue, path)
	}

	switch kind {
	case types.KindInt:
		n, err := s.GetInt(path)
		return types.Int(n), err
	case types.KindLong:
		n, err := s.GetLong(path)
		return types.Long(n), err
	case types.KindDouble:
		d, err := s.GetDouble(path)
		return types.Double(d), err
	case types.KindBool:
		b, err := s.GetBool(path)
		return types.Bool(b), err
	default:
		str, err := s.GetString(path)
		return types.Text(str), err
	}
}

// parseValue converts a command-line argument to a Value. With "auto",
// integers that fit in 32 bits become ints, wider ones longs, then finite
// floats, then "true" and "false"; anything else is text.
func parseValue(s, kindName string) (types.Value, error) {
	if kindName != kindAuto {
		kind, err := types.ParseKind(kindName)
		if err != nil {
			return types.Null(), err
		}
		return types.ParseValue(kind, s)
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return types.Int(int(n)), nil
		}
		return types.Long(n), nil
	}
	if d, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(d, 0) && !math.IsNaN(d) {
		return types.Double(d), nil
	}
	switch s {
	case "true":
		return types.Bool(true), nil
	case "false":
		return types.Bool(false), nil
	}
	return types.Text(s), nil
}

func newSetCmd(a *app) *cobra.Command {
	return newWriteCmd(a, "set", "Store a value at a path that holds none", false)
}

func newReplaceCmd(a *app) *cobra.Command {
	return newWriteCmd(a, "replace", "Store a value at a path, overwriting any existing value", true)
}

func newWriteCmd(a *app, name, short string, overwrite bool) *cobra.Command {
	var kindName string
	cmd := &cobra.Command{
		Use:   name + " <path> [--] <value>",
		Short: short,
		Long: short + ".\n\n" +
			"A value starting with '-' would be read as a flag, so negative numbers\n" +
			"go after --. Flags must come before the --.\n\n" +
			"Example:\n" +
			"  sqlcfg " + name + " server.port 25565\n" +
			"  sqlcfg " + name + " server.ratio 0.5 --type double\n" +
			"  sqlcfg " + name + " world.seed --type long -- -4172144997902289642",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWrite(cmd, args[0], args[1], kindName, overwrite)
		},
	}
	cmd.Flags().StringVarP(&kindName, "type", "t", kindAuto, "value type: auto, int, long, double, string or bool")
	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w (put -- before a negative value)", err)
	})
	return cmd
}

func (a *app) runWrite(cmd *cobra.Command, path, raw, kindName string, overwrite bool) error {
	v, err := parseValue(raw, kindName)
	if err != nil {
		return err
	}

	f, err := a.openFile()
	if err != nil {
		return err
	}
	defer f.Close()

	if overwrite {
		err = f.Replace(path, v)
	} else {
		err = f.Set(path, v)
	}
	if err != nil {
		return err
	}

	if a.flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), valueOutput{Path: path, Type: v.Kind().String(), Value: v.Interface()})
	}
	return nil
}

func newUnsetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <path>",
		Short: "Remove the value stored at a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.openFile()
			if err != nil {
				return err
			}
			defer f.Close()
			return f.Unset(args[0])
		},
	}
}

func newKeysCmd(a *app) *cobra.Command {
	var deep bool
	cmd := &cobra.Command{
		Use:   "keys [path]",
		Short: "List the keys below a section",
		Long: "Keys lists the immediate child keys of a section, or with --deep every\n" +
			"stored path below it, relative to the section.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			f, err := a.openFile()
			if err != nil {
				return err
			}
			defer f.Close()

			s, err := section(f, path)
			if err != nil {
				return err
			}
			keys, err := s.Keys(deep)
			if err != nil {
				return err
			}

			if a.flags.jsonMode {
				if keys == nil {
					keys = []string{}
				}
				return printJSON(cmd.OutOrStdout(), keys)
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&deep, "deep", "d", false, "list every stored path below the section")
	return cmd
}
