package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/marmos91/dittouploads/pkg/config"
	"github.com/marmos91/dittouploads/pkg/uploads"
	"github.com/spf13/cobra"
)

// newInitCommand creates the init command
func newInitCommand(cli *CLI) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with default values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cli.configPath
			if path == "" {
				path = config.GetDefaultConfigPath()
			}

			if err := config.InitConfigAt(path, force); err != nil {
				return err
			}
			return cli.println(path)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	return cmd
}

// newUploadCommand creates the upload command
func newUploadCommand(cli *CLI) *cobra.Command {
	var (
		diskName string
		name     string
		meta     metaFlags
	)

	cmd := &cobra.Command{
		Use:   "upload <file|-> [file...]",
		Short: "Upload files and print their identifiers",
		Long: `Upload stores each file on a disk and prints one identifier per line,
in argument order. "-" reads from stdin and requires --name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) > 1 {
				return fmt.Errorf("--name only applies to a single upload")
			}

			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				opts := uploads.UploadOptions{Disk: diskName, Meta: meta.metadata()}

				files := make([]uploads.File, 0, len(args))
				for _, arg := range args {
					r, fileName, err := cli.openInput(arg, name)
					if err != nil {
						return err
					}
					defer r.Close()
					files = append(files, uploads.File{Reader: r, Name: fileName})
				}

				ids, err := e.UploadMany(ctx, files, opts)
				if err != nil {
					return err
				}
				for _, id := range ids {
					if err := cli.println(id); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&diskName, "disk", "d", "", "Destination disk (default: configured default disk)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "File name to store (default: base name of the file)")
	meta.register(cmd)
	return cmd
}

// newUpdateCommand creates the update command
func newUpdateCommand(cli *CLI) *cobra.Command {
	var (
		diskName string
		name     string
		meta     metaFlags
	)

	cmd := &cobra.Command{
		Use:   "update <id> <file|->",
		Short: "Replace the content of an upload",
		Long: `Update writes the new content, repoints the record and then deletes the
previous file. Metadata is kept unless --meta or --context is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				r, fileName, err := cli.openInput(args[1], name)
				if err != nil {
					return err
				}
				defer r.Close()

				id, err := e.Update(ctx, args[0], r, fileName, uploads.UploadOptions{
					Disk: diskName,
					Meta: meta.metadata(),
				})
				if err != nil {
					return err
				}
				return cli.println(id)
			})
		},
	}

	cmd.Flags().StringVarP(&diskName, "disk", "d", "", "Destination disk (default: configured default disk)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "File name to store (default: base name of the file)")
	meta.register(cmd)
	return cmd
}

// newReadCommand creates the read command
func newReadCommand(cli *CLI) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "read <id>",
		Short: "Write the content of an upload to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				rc, err := e.OpenReader(ctx, args[0])
				if err != nil {
					return err
				}
				defer rc.Close()

				if output == "" || output == "-" {
					_, err = io.Copy(cli.stdout, rc)
					return err
				}

				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				_, err = io.Copy(f, rc)
				return errors.Join(err, f.Close())
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default: stdout)")
	return cmd
}

// newLocateCommand creates the locate command
func newLocateCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <id>",
		Short: "Print where an upload is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				loc, err := e.Locate(ctx, args[0])
				if err != nil {
					return err
				}
				return cli.printJSON(loc)
			})
		},
	}
}

// newDuplicateCommand creates the duplicate command
func newDuplicateCommand(cli *CLI) *cobra.Command {
	var (
		diskName     string
		preservePath bool
		meta         metaFlags
	)

	cmd := &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy an upload into a new independent record",
		Long: `Duplicate copies the bytes and creates a second record. The copy carries
the original's metadata unless --meta or --context is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				id, err := e.Duplicate(ctx, args[0], uploads.DuplicateOptions{
					Meta:         meta.metadata(),
					Disk:         diskName,
					PreservePath: preservePath,
				})
				if err != nil {
					return err
				}
				return cli.println(id)
			})
		},
	}

	cmd.Flags().StringVarP(&diskName, "disk", "d", "", "Destination disk (default: configured default disk)")
	cmd.Flags().BoolVar(&preservePath, "preserve-path", false, "Keep the source path on the destination disk")
	meta.register(cmd)
	return cmd
}

// transferOutput is the printed form of a transfer result.
type transferOutput struct {
	ID        string           `json:"id"`
	Location  uploads.Location `json:"location"`
	Unchanged bool             `json:"unchanged"`
}

// newTransferCommand creates the transfer command
func newTransferCommand(cli *CLI) *cobra.Command {
	var (
		diskName       string
		regeneratePath bool
		deleteSource   bool
		meta           metaFlags
	)

	cmd := &cobra.Command{
		Use:   "transfer <id>",
		Short: "Move an upload to another disk, keeping its identifier",
		Long: `Transfer copies the bytes to the destination disk and repoints the record.
The source file stays in place unless --delete-source is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				res, err := e.Transfer(ctx, args[0], uploads.TransferOptions{
					Disk:           diskName,
					Meta:           meta.metadata(),
					RegeneratePath: regeneratePath,
					DeleteSource:   deleteSource,
				})
				if err != nil {
					return err
				}
				return cli.printJSON(transferOutput{
					ID:        res.ID,
					Location:  res.Location,
					Unchanged: res.Unchanged,
				})
			})
		},
	}

	cmd.Flags().StringVarP(&diskName, "disk", "d", "", "Destination disk (default: configured default disk)")
	cmd.Flags().BoolVar(&regeneratePath, "regenerate-path", false, "Store under a freshly generated path")
	cmd.Flags().BoolVar(&deleteSource, "delete-source", false, "Remove the source file after the transfer")
	meta.register(cmd)
	return cmd
}

// newDeleteCommand creates the delete command
func newDeleteCommand(cli *CLI) *cobra.Command {
	var fileOnly bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an upload and its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				return e.Delete(ctx, args[0], uploads.DeleteOptions{FileOnly: fileOnly})
			})
		},
	}

	cmd.Flags().BoolVar(&fileOnly, "file-only", false, "Delete the stored file but keep the record")
	return cmd
}

// newURLCommand creates the url command
func newURLCommand(cli *CLI) *cobra.Command {
	var (
		temporary bool
		expires   time.Duration
		fallback  bool
	)

	cmd := &cobra.Command{
		Use:   "url <id>",
		Short: "Print the public or temporary URL of an upload",
		Long: `Url prints the public URL of an upload. With --temporary it prints a
time-limited URL instead, for disks that can sign one (S3). Nothing is
printed when the disk cannot produce a URL.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				var (
					url string
					err error
				)
				if temporary {
					url, err = e.TemporaryURL(ctx, args[0], expires, fallback)
				} else {
					url, err = e.URL(ctx, args[0])
				}
				if err != nil {
					return err
				}
				if url == "" {
					return nil
				}
				return cli.println(url)
			})
		},
	}

	cmd.Flags().BoolVarP(&temporary, "temporary", "t", false, "Print a time-limited URL")
	cmd.Flags().DurationVar(&expires, "expires", 0, "Temporary URL lifetime (default 15m)")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "Fall back to the public URL when the disk cannot sign URLs")
	return cmd
}

// newMaterializeCommand creates the materialize command
func newMaterializeCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize <id>",
		Short: "Copy an upload into a local temporary file and print its path",
		Long: `Materialize copies an upload into a local temporary file. The file is
not removed: deleting it is up to the caller.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.withEngine(cmd, func(ctx context.Context, e *engine) error {
				path, err := e.TemporaryFile(ctx, args[0])
				if err != nil {
					return err
				}
				return cli.println(path)
			})
		},
	}
}
