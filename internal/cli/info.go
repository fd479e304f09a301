package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyperjump/vecsearch/internal/dataset"
	"github.com/hyperjump/vecsearch/internal/storage"
)

// infoResponse describes a dataset directory without loading its index.
type infoResponse struct {
	Dir            string              `json:"dir"`
	Descriptor     *dataset.Descriptor `json:"descriptor"`
	Metric         string              `json:"metric"`
	Queryable      bool                `json:"queryable"`
	Missing        string              `json:"missing,omitempty"`
	Files          []storage.FileUsage `json:"files"`
	DiskUsageBytes int64               `json:"disk_usage_bytes"`
}

func newInfoCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "info <dataset-dir>",
		Short: "Show the descriptor and disk usage of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := ParseOutputFormat(output)
			if err != nil {
				return err
			}
			info, err := datasetInfo(args[0])
			if err != nil {
				return err
			}
			return writeInfo(cmd.OutOrStdout(), info, format)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or json")
	return cmd
}

func datasetInfo(dir string) (*infoResponse, error) {
	desc, err := dataset.ReadDescriptor(dir)
	if err != nil {
		return nil, err
	}
	layout := dataset.Layout{Dir: dir}
	files, total, err := storage.DatasetUsage(dir, layout.Files()...)
	if err != nil {
		return nil, err
	}
	info := &infoResponse{
		Dir:            dir,
		Descriptor:     desc,
		Metric:         desc.Metric().String(),
		Queryable:      true,
		Files:          files,
		DiskUsageBytes: total,
	}
	if err := desc.Require(dataset.QueryFields...); err != nil {
		info.Queryable = false
		info.Missing = err.Error()
	}
	return info, nil
}

func writeInfo(w io.Writer, info *infoResponse, format SearchOutputFormat) error {
	if format == OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	d := info.Descriptor
	fmt.Fprintf(w, "dir:               %s\n", info.Dir)
	fmt.Fprintf(w, "num_samples:       %d\n", d.NumSamples)
	fmt.Fprintf(w, "dim:               %d\n", d.Dim)
	fmt.Fprintf(w, "encoder_id:        %s\n", d.EncoderID)
	fmt.Fprintf(w, "normalize:         %t   # metric %s\n", d.Normalize, info.Metric)
	fmt.Fprintf(w, "quantize:          %t\n", d.Quantize)
	if d.Quantize {
		fmt.Fprintf(w, "quantize_max:      %g\n", d.QuantizeRange())
	}
	if d.IndexBackend != "" {
		fmt.Fprintf(w, "index_backend:     %s\n", d.IndexBackend)
	} else {
		fmt.Fprintf(w, "index_backend:     (not built)\n")
	}
	if !d.CreatedAt.IsZero() {
		fmt.Fprintf(w, "created_at:        %s\n", d.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if !info.Queryable {
		fmt.Fprintf(w, "queryable:         false   # %s\n", info.Missing)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "# files")
	for _, f := range info.Files {
		if f.Exists {
			fmt.Fprintf(w, "%-18s %d bytes\n", f.Name+":", f.Bytes)
		}
	}
	fmt.Fprintf(w, "disk_usage_bytes:  %d\n", info.DiskUsageBytes)
	return nil
}
