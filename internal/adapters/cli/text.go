package cli

import (
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"collectorkit/internal/domain"
	"collectorkit/pkg/format"
	"collectorkit/pkg/secret"
	"collectorkit/pkg/textutil"
	"collectorkit/pkg/tz"
)

func (a *App) translateCmd() *cobra.Command {
	var lang string
	cmd := &cobra.Command{
		Use:   "translate TEXT",
		Short: "Translate text into a supported language",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.tr.Translate(cmd.Context(), args[0], lang)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&lang, "to", "t", "", "target language (defaults to the output language)")
	return cmd
}

func (a *App) dateCmd() *cobra.Command {
	var (
		layout string
		unix   int64
		months bool
	)
	cmd := &cobra.Command{
		Use:   "date",
		Short: "Print a date with month names in the output language",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if months {
				names, err := a.tr.Months(a.tr.Language())
				if err != nil {
					return err
				}
				for m := time.January; m <= time.December; m++ {
					fmt.Fprintf(a.out, "%2d  %s\n", int(m), names[m])
				}
				return nil
			}
			loc, err := tz.Load(a.cfg.Timezone)
			if err != nil {
				return err
			}
			var t time.Time
			if unix != 0 {
				t = time.Unix(unix, 0).In(loc)
			} else {
				t = time.Now().In(loc)
			}
			fmt.Fprintln(a.out, a.tr.Date(layout, t))
			return nil
		},
	}
	cmd.Flags().StringVar(&layout, "layout", "2 January 2006", "Go time layout")
	cmd.Flags().Int64Var(&unix, "unix", 0, "unix seconds to format instead of now")
	cmd.Flags().BoolVar(&months, "months", false, "list the month names of the output language")
	return cmd
}

func (a *App) csvCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csv",
		Short: "CSV helpers",
	}

	var delimiter, to string
	parse := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a CSV file (- for stdin) and print its records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			from, err := delimiterRune(delimiter)
			if err != nil {
				return err
			}
			records, err := textutil.ParseCSV(string(in), from)
			if err != nil {
				return err
			}
			if to != "" {
				out, err := delimiterRune(to)
				if err != nil {
					return err
				}
				_, err = io.WriteString(a.out, textutil.GenerateCSV(records, out))
				return err
			}
			p := a.print()
			for i, r := range records {
				fmt.Fprintf(p.w, "%d: %s\n", i+1, strings.Join(r, " | "))
			}
			p.Success(fmt.Sprintf("%d records", len(records)))
			return nil
		},
	}
	parse.Flags().StringVarP(&delimiter, "delimiter", "d", ",", "field delimiter")
	parse.Flags().StringVar(&to, "to", "", "re-emit the records as CSV with this delimiter")
	cmd.AddCommand(parse)
	return cmd
}

func (a *App) formatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Format amounts, dates and durations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "currency AMOUNT [CODE]",
		Short: "Format an amount with its currency symbol",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return domain.Wrap("format currency", domain.ErrParseError, err)
			}
			code := "USD"
			if len(args) == 2 {
				code = args[1]
			}
			fmt.Fprintln(a.out, format.Currency(amount, code))
			return nil
		},
	})

	var layout string
	date := &cobra.Command{
		Use:   "date VALUE",
		Short: "Reformat a date string or unix timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := tz.Load(a.cfg.Timezone)
			if err != nil {
				return err
			}
			out, err := format.Date(dateValue(args[0]), layout, loc)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	date.Flags().StringVar(&layout, "layout", format.DefaultDateLayout, "Go time layout")
	cmd.AddCommand(date)

	cmd.AddCommand(&cobra.Command{
		Use:   "diff START [END]",
		Short: "Print the distance between two dates in seconds",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := format.ParseTime(dateValue(args[0]), time.UTC)
			if err != nil {
				return err
			}
			var end time.Time
			if len(args) == 2 {
				if end, err = format.ParseTime(dateValue(args[1]), time.UTC); err != nil {
					return err
				}
			}
			fmt.Fprintln(a.out, format.TimeDifference(start, end))
			return nil
		},
	})
	return cmd
}

func (a *App) checkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate e-mail addresses, file names and free text",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "email ADDRESS",
		Short: "Check an e-mail address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !textutil.ValidateEmail(args[0]) {
				return domain.Wrap("check email", domain.ErrValidationFailed, fmt.Errorf("%q is not a valid address", args[0]))
			}
			a.print().Success(args[0])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "file NAME",
		Short: "Check a file name against the upload allow-list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !textutil.IsAllowedFileType(args[0], a.cfg.AllowedFileTypes...) {
				return domain.Wrap("check file", domain.ErrFileTypeNotAllowed, fmt.Errorf("extension %q", textutil.FileExtension(args[0])))
			}
			a.print().Success(args[0])
			return nil
		},
	})

	var query bool
	input := &cobra.Command{
		Use:   "input TEXT [PATTERN...]",
		Short: "Clean and escape request input, optionally searching for patterns",
		Long: `Clean and escape request input. With --query, TEXT is a URL query string
and every key and value is cleaned.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if query {
				return a.checkQuery(args[0], args[1:])
			}
			cleaned := textutil.CleanRequestInput(args[0])
			fmt.Fprintln(a.out, textutil.SanitizeHTML(cleaned))
			if len(args) > 1 && textutil.ContainsPattern(cleaned, args[1:]...) {
				a.print().Warning("pattern found")
			}
			return nil
		},
	}
	input.Flags().BoolVar(&query, "query", false, "treat TEXT as a URL query string")
	cmd.AddCommand(input)
	return cmd
}

func (a *App) checkQuery(raw string, patterns []string) error {
	parsed, err := url.ParseQuery(raw)
	if err != nil {
		return domain.Wrap("check query", domain.ErrParseError, err)
	}
	values := textutil.CleanRequestValues(parsed)
	found := false
	for _, key := range slices.Sorted(maps.Keys(values)) {
		for _, v := range values[key] {
			fmt.Fprintf(a.out, "%s=%s\n", textutil.SanitizeHTML(key), textutil.SanitizeHTML(v))
			found = found || (len(patterns) > 0 && textutil.ContainsPattern(v, patterns...))
		}
	}
	if found {
		a.print().Warning("pattern found")
	}
	return nil
}

func (a *App) encryptCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "encrypt [TEXT]",
		Short: "Encrypt text (or stdin) with the configured key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			out, err := secret.Encrypt(data, a.keyOr(key))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, out)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "passphrase (defaults to ENCRYPTION_KEY)")
	return cmd
}

func (a *App) decryptCmd() *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   "decrypt [CIPHERTEXT]",
		Short: "Decrypt a value produced by encrypt",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := argOrStdin(cmd, args)
			if err != nil {
				return err
			}
			out, err := secret.Decrypt(strings.TrimSpace(string(data)), a.keyOr(key))
			if err != nil {
				return err
			}
			_, err = a.out.Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "passphrase (defaults to ENCRYPTION_KEY)")
	return cmd
}

func (a *App) keyOr(key string) string {
	if key != "" {
		return key
	}
	return a.cfg.EncryptionKey
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func argOrStdin(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return []byte(args[0]), nil
	}
	return io.ReadAll(cmd.InOrStdin())
}

func delimiterRune(s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r := []rune(s)
	if len(r) != 1 {
		return 0, domain.Wrap("csv delimiter", domain.ErrValidationFailed, fmt.Errorf("want one character, got %q", s))
	}
	return r[0], nil
}

// dateValue passes digits as unix seconds and anything else as a date string.
func dateValue(s string) any {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return s
}
