package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"relab/internal/archive"
	"relab/internal/models"
	"relab/pkg/relab"
)

func newColumnsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "columns",
		Short: "List the catalogue sheets and master-table columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, name := range archive.SortedNames(s.Catalogues()) {
				fmt.Fprintf(w, "sheet\t%s\t%s\n", name, s.Catalogues()[name])
			}
			for _, c := range models.NewCatalogue(s.Table(), s.Fingerprint()).Columns {
				fmt.Fprintf(w, "column\t%s\t%s\n", c.Name, c.Kind)
			}
			return w.Flush()
		},
	}
}

func newQueryCommand(a *app) *cobra.Command {
	var extract, asJSON bool
	cmd := &cobra.Command{
		Use:   "query FIELD VALUE",
		Short: "Select rows whose FIELD equals VALUE and retrieve their spectra",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			sel, refs, err := s.Query(args[0], args[1], extract)
			return printSelection(cmd.OutOrStdout(), sel, refs, err, asJSON)
		},
	}
	cmd.Flags().BoolVar(&extract, "extract", false, "copy the selected spectra into the work directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the selection as JSON")
	return cmd
}

func newLocateCommand(a *app) *cobra.Command {
	var extract, asJSON bool
	cmd := &cobra.Command{
		Use:   "locate SAMPLE_ID",
		Short: "Select the rows of one sample and retrieve their spectra",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			sel, refs, err := s.Locate(args[0], extract)
			return printSelection(cmd.OutOrStdout(), sel, refs, err, asJSON)
		},
	}
	cmd.Flags().BoolVar(&extract, "extract", false, "copy the selected spectra into the work directory")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the selection as JSON")
	return cmd
}

func newPlotCommand(a *app) *cobra.Command {
	var field, value, id string
	var extract bool
	cmd := &cobra.Command{
		Use:   "plot (--field F --value V | --id SAMPLE_ID)",
		Short: "Render one scatter plot per selected spectrum",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (id == "") == (field == "") {
				return errors.New("exactly one of --id or --field is required")
			}
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				refs      []relab.Ref
				retrieval error
			)
			if id != "" {
				_, refs, err = s.Locate(id, extract)
			} else {
				_, refs, err = s.Query(field, value, extract)
			}
			if len(refs) == 0 {
				if err == nil {
					err = errors.New("no spectra selected")
				}
				return err
			}
			retrieval = err

			paths, err := s.ShowSpectra(refs)
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return multierr.Append(retrieval, err)
		},
	}
	cmd.Flags().StringVar(&field, "field", "", "column to match")
	cmd.Flags().StringVar(&value, "value", "", "value the column must equal")
	cmd.Flags().StringVar(&id, "id", "", "sample identifier")
	cmd.Flags().BoolVar(&extract, "extract", false, "copy the selected spectra into the work directory")
	return cmd
}

func newRebuildCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Parse the catalogues again and replace the master-table snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open()
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Rebuild(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ExportPath())
			fmt.Fprintln(cmd.OutOrStdout(), s.SnapshotPath())
			return nil
		},
	}
}

// printSelection writes the selection and returns err, so retrieval
// failures still fail the command after the found spectra are shown.
func printSelection(w io.Writer, sel relab.Selection, refs []relab.Ref, err error, asJSON bool) error {
	if sel.Table == nil {
		return err
	}

	if asJSON {
		out := models.SelectionResult{Total: sel.Len(), Rows: models.NewRows(sel), Spectra: refs}
		for _, e := range multierr.Errors(err) {
			out.Errors = append(out.Errors, e.Error())
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%d rows\n", sel.Len())
	fmt.Fprintln(tw, "SampleID\tSpectrumID\tPath\tLocal")
	for _, r := range refs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.SampleID, r.SpectrumID, r.Path, r.Local)
	}
	if flushErr := tw.Flush(); flushErr != nil {
		return flushErr
	}
	return err
}
