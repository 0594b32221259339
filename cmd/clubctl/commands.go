package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"clubsite/internal/site/model"
	"clubsite/pkg/client"

	"github.com/spf13/cobra"
)

type options struct {
	api      string
	token    string
	mode     string
	cacheDir string
	output   string
	noCache  bool
}

var resources = []string{"content", "events", "galleries", "links", "news", "email-config"}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "clubctl")
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:          "clubctl",
		Short:        "Read and edit club site content from the command line",
		Long:         `clubctl talks to the club site API. In development mode it keeps a local cache that answers reads, and accepts writes, while the server is unreachable.`,
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.StringVar(&opts.api, "api", envOr("CLUBCTL_API", "http://localhost:8080/api"), "API base URL")
	f.StringVar(&opts.token, "token", os.Getenv("CLUBCTL_TOKEN"), "admin bearer token")
	f.StringVar(&opts.mode, "mode", envOr("CLUBCTL_MODE", "development"), "production or development")
	f.StringVar(&opts.cacheDir, "cache-dir", defaultCacheDir(), "local cache directory (development mode)")
	f.BoolVar(&opts.noCache, "no-cache", false, "disable the local cache")
	f.StringVarP(&opts.output, "output", "o", "json", "output format: json or yaml")

	root.AddCommand(newGetCmd(opts), newSetCmd(opts), newGalleryCmd(opts), newPingCmd(opts))
	return root
}

// connect builds a client; the returned func releases the cache.
func connect(opts *options) (*client.Client, func(), error) {
	mode, err := client.ParseMode(opts.mode)
	if err != nil {
		return nil, nil, err
	}
	clientOpts := []client.Option{client.WithToken(opts.token)}
	cleanup := func() {}
	if mode == client.Development && !opts.noCache && opts.cacheDir != "" {
		cache, err := client.OpenBadgerCache(opts.cacheDir)
		if err != nil {
			return nil, nil, err
		}
		clientOpts = append(clientOpts, client.WithCache(cache))
		cleanup = func() { cache.Close() }
	}
	return client.New(opts.api, mode, clientOpts...), cleanup, nil
}

func checkResource(name string) error {
	i := sort.SearchStrings(sortedResources, name)
	if i < len(sortedResources) && sortedResources[i] == name {
		return nil
	}
	return fmt.Errorf("unknown resource %q (want one of %v)", name, resources)
}

var sortedResources = func() []string {
	s := append([]string(nil), resources...)
	sort.Strings(s)
	return s
}()

func fetch(ctx context.Context, c *client.Client, resource string) (any, client.Source) {
	switch resource {
	case "content":
		return c.Content(ctx)
	case "events":
		return c.Events(ctx)
	case "galleries":
		return c.Galleries(ctx)
	case "links":
		return c.Links(ctx)
	case "news":
		return c.News(ctx)
	default:
		return c.EmailConfig(ctx)
	}
}

func newGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:       "get <resource>",
		Short:     "Print a document",
		Args:      cobra.ExactArgs(1),
		ValidArgs: resources,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			doc, src := fetch(cmd.Context(), c, args[0])
			if src != client.FromRemote {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: server unreachable, showing %s copy\n", src)
			}
			return render(cmd.OutOrStdout(), opts.output, doc)
		},
	}
}

func readJSONFile(path string) (json.RawMessage, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s does not contain valid JSON", path)
	}
	return json.RawMessage(data), nil
}

func newSetCmd(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "set <resource> -f file.json",
		Short: "Replace a document with the contents of a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkResource(args[0]); err != nil {
				return err
			}
			if args[0] == "galleries" {
				return fmt.Errorf("galleries are edited with the gallery subcommands")
			}
			doc, err := readJSONFile(file)
			if err != nil {
				return err
			}
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			res, err := client.Write(cmd.Context(), c, args[0], doc)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, res)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON document to send (- for stdin)")
	return cmd
}

func newGalleryCmd(opts *options) *cobra.Command {
	gallery := &cobra.Command{Use: "gallery", Short: "Create, update and delete galleries"}

	var createFile string
	create := &cobra.Command{
		Use:   "create -f gallery.json",
		Short: "Create a gallery; the server assigns its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readJSONFile(createFile)
			if err != nil {
				return err
			}
			var g model.GalleryMeta
			if err := json.Unmarshal(raw, &g); err != nil {
				return err
			}
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			created, err := c.CreateGallery(cmd.Context(), g)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, created)
		},
	}
	create.Flags().StringVarP(&createFile, "file", "f", "-", "gallery JSON (- for stdin)")

	var patchFile string
	update := &cobra.Command{
		Use:   "update <id> -f patch.json",
		Short: "Merge fields into a gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readJSONFile(patchFile)
			if err != nil {
				return err
			}
			var patch map[string]any
			if err := json.Unmarshal(raw, &patch); err != nil {
				return fmt.Errorf("patch must be a JSON object: %w", err)
			}
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			if err := c.UpdateGallery(cmd.Context(), args[0], patch); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %s\n", args[0])
			return nil
		},
	}
	update.Flags().StringVarP(&patchFile, "file", "f", "-", "patch JSON (- for stdin)")

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a gallery (no error if it does not exist)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			if err := c.DeleteGallery(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	gallery.AddCommand(create, update, del)
	return gallery
}

func newPingCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Show server status and where each document is served from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, done, err := connect(opts)
			if err != nil {
				return err
			}
			defer done()
			st, err := c.Ping(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), opts.output, st)
		},
	}
}
