package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rediwo/redi-ado/drivers/sqlite"
	"github.com/rediwo/redi-ado/logger"
	"github.com/rediwo/redi-ado/utils"
	"github.com/spf13/cobra"
)

const connEnv = "REDI_ADO_CONN"

type options struct {
	connString string
	logLevel   string
	noColor    bool
	params     []string
	positional []string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "redi-ado",
		Short: "Run SQL against SQLite databases",
		Long: `redi-ado executes SQL text through the connection, command and reader layer.

The connection string comes from --conn or the ` + connEnv + ` environment variable:

  $ redi-ado query --conn "URI=file://./app.db, Version=3" "SELECT * FROM users"
  $ redi-ado exec "INSERT INTO users (name) VALUES (:name)" --param name=alice`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l := logger.NewDefaultLogger("redi-ado")
			if opts.noColor {
				l.DisableColor()
			}
			l.SetLevel(logger.ParseLogLevel(opts.logLevel))
			logger.SetGlobalLogger(l)

			if opts.connString == "" {
				opts.connString = os.Getenv(connEnv)
			}
			return nil
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.connString, "conn", "", "connection string (default $"+connEnv+")")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: none, error, warn, info, debug")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable colored log output")

	rootCmd.AddCommand(
		newExecCmd(opts),
		newQueryCmd(opts),
		newScalarCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printVersion()
			},
		},
	)
	return rootCmd
}

func addParamFlags(cmd *cobra.Command, opts *options) {
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "named parameter as name=value (repeatable)")
	cmd.Flags().StringArrayVarP(&opts.positional, "arg", "a", nil, "positional parameter value (repeatable)")
}

func newExecCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <sql>",
		Short: "Execute statements and print the number of affected rows",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, command, err := opts.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			defer conn.Close()

			n, err := command.ExecuteNonQuery(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d row(s) affected\n", n)
			return nil
		},
	}
	addParamFlags(cmd, opts)
	return cmd
}

func newScalarCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scalar <sql>",
		Short: "Print the first column of the first row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, command, err := opts.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			defer conn.Close()

			v, err := command.ExecuteScalar(cmd.Context())
			if err != nil {
				return err
			}
			if v == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "(no rows)")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatCell(v))
			return nil
		},
	}
	addParamFlags(cmd, opts)
	return cmd
}

func newQueryCmd(opts *options) *cobra.Command {
	var showTypes bool

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Print every result set as a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, command, err := opts.prepare(cmd, args[0])
			if err != nil {
				return err
			}
			defer conn.Close()

			r, err := command.ExecuteReader(cmd.Context(), sqlite.BehaviorDefault)
			if err != nil {
				return err
			}
			defer r.Close()

			out := cmd.OutOrStdout()
			for {
				if r.FieldCount() > 0 {
					if err := printResult(out, r, showTypes); err != nil {
						return err
					}
				}
				more, err := r.NextResult()
				if err != nil {
					return err
				}
				if !more {
					break
				}
				fmt.Fprintln(out)
			}
			if n := r.RecordsAffected(); n > 0 {
				fmt.Fprintf(out, "%d row(s) affected\n", n)
			}
			return nil
		},
	}
	addParamFlags(cmd, opts)
	cmd.Flags().BoolVar(&showTypes, "types", false, "show declared column types in the header")
	return cmd
}

func printResult(out io.Writer, r *sqlite.Reader, showTypes bool) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	header := make([]string, r.FieldCount())
	for i := range header {
		name, err := r.GetName(i)
		if err != nil {
			return err
		}
		if showTypes {
			typeName, err := r.GetDataTypeName(i)
			if err != nil {
				return err
			}
			name = fmt.Sprintf("%s (%s)", name, typeName)
		}
		header[i] = name
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))

	rows := 0
	for {
		ok, err := r.Read()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		cells := make([]string, r.FieldCount())
		for i := range cells {
			v, err := r.GetValue(i)
			if err != nil {
				return err
			}
			cells[i] = formatCell(v)
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
		rows++
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "(%d row(s))\n", rows)
	return nil
}

func formatCell(v any) string {
	switch val := v.(type) {
	case []byte:
		return fmt.Sprintf("x'%X'", val)
	case nil:
		return ""
	}
	if v == sqlite.DBNull {
		return "NULL"
	}
	return utils.ToString(v)
}

// prepare opens the connection and builds the command with its parameters
func (o *options) prepare(cmd *cobra.Command, text string) (*sqlite.Connection, *sqlite.Command, error) {
	if o.connString == "" {
		return nil, nil, fmt.Errorf("no connection string: use --conn or set %s", connEnv)
	}

	conn := sqlite.NewConnection(o.connString)
	if err := conn.Open(cmd.Context()); err != nil {
		return nil, nil, err
	}

	command := conn.CreateCommand()
	command.Text = text
	for _, p := range o.params {
		name, value, ok := strings.Cut(p, "=")
		if !ok || name == "" {
			conn.Close()
			return nil, nil, fmt.Errorf("invalid --param %q: expected name=value", p)
		}
		command.Parameters().Add(name, value)
	}
	for _, v := range o.positional {
		command.Parameters().AddPositional(v)
	}
	return conn, command, nil
}
