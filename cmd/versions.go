package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/haierkeys/doc-history-service/pkg/editor"
	"github.com/haierkeys/doc-history-service/pkg/historyclient"

	"github.com/bytedance/sonic"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type clientFlags struct {
	server  string
	lang    string
	timeout time.Duration
}

func (f *clientFlags) client() (*historyclient.Client, error) {
	return historyclient.New(f.server,
		historyclient.WithLogger(bootstrapLogger),
		historyclient.WithLang(f.lang),
	)
}

func (f *clientFlags) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), f.timeout)
}

func printJSON(w io.Writer, v any) error {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func init() {
	flags := new(clientFlags)

	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "Inspect and restore document versions on a running service",
	}
	pf := versionsCmd.PersistentFlags()
	pf.StringVarP(&flags.server, "server", "s", "http://127.0.0.1:9000", "service base url")
	pf.StringVar(&flags.lang, "lang", "", "response language en / zh_cn")
	pf.DurationVar(&flags.timeout, "timeout", 30*time.Second, "request timeout")

	var (
		roomID    string
		versionID int64
		author    string
		title     string
		file      string
		compact   bool
		fromID    int64
		toID      int64
	)

	listCmd := &cobra.Command{
		Use:   "list --room ROOM",
		Short: "List versions of a room, most recent first",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()

			list, err := c.ListVersions(ctx, roomID)
			if err != nil {
				return err
			}
			visible := map[int64]bool{}
			if compact {
				visible = editor.NewHistoryBrowser(c, nil, 0, bootstrapLogger).DisplayFilter(ctx, list)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tVERSION\tAUTHOR\tCREATED")
			for _, v := range list {
				if compact && !visible[v.ID] {
					continue
				}
				fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", v.ID, v.Version, v.AuthorEmail, v.CreatedAt.Local().Format(time.DateTime))
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringVarP(&roomID, "room", "r", "", "room id")
	listCmd.Flags().BoolVar(&compact, "compact", false, "hide versions whose text equals the next older one")
	_ = listCmd.MarkFlagRequired("room")

	getCmd := &cobra.Command{
		Use:   "get --id VERSION_ID",
		Short: "Print one version with its content",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()
			v, err := c.GetVersion(ctx, versionID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), v)
		},
	}
	getCmd.Flags().Int64VarP(&versionID, "id", "i", 0, "version id")
	_ = getCmd.MarkFlagRequired("id")

	saveCmd := &cobra.Command{
		Use:   "save --room ROOM --author EMAIL [--file doc.json]",
		Short: "Save a serialized document as the room's next version",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				content []byte
				err     error
			)
			if file == "" || file == "-" {
				content, err = io.ReadAll(cmd.InOrStdin())
			} else {
				content, err = os.ReadFile(file)
			}
			if err != nil {
				return err
			}
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()
			res, err := c.SaveVersion(ctx, historyclient.SaveRequest{
				RoomID:      roomID,
				Title:       title,
				AuthorEmail: author,
				Content:     content,
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), res)
		},
	}
	saveCmd.Flags().StringVarP(&roomID, "room", "r", "", "room id")
	saveCmd.Flags().StringVarP(&author, "author", "a", "", "author email")
	saveCmd.Flags().StringVarP(&title, "title", "t", "", "document title")
	saveCmd.Flags().StringVarP(&file, "file", "f", "", "document file, - or empty reads stdin")
	_ = saveCmd.MarkFlagRequired("room")
	_ = saveCmd.MarkFlagRequired("author")

	revertCmd := &cobra.Command{
		Use:   "revert --room ROOM --id VERSION_ID --author EMAIL",
		Short: "Copy an old version of the room into a new version",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()
			res, err := c.Revert(ctx, historyclient.RevertRequest{
				RoomID:      roomID,
				VersionID:   versionID,
				AuthorEmail: author,
				Title:       title,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted to version %d as version %d (id %d)\n", versionID, res.Version, res.ID)
			return nil
		},
	}
	revertCmd.Flags().StringVarP(&roomID, "room", "r", "", "room id")
	revertCmd.Flags().Int64VarP(&versionID, "id", "i", 0, "version id to restore")
	revertCmd.Flags().StringVarP(&author, "author", "a", "", "author email")
	revertCmd.Flags().StringVarP(&title, "title", "t", "", "document title")
	_ = revertCmd.MarkFlagRequired("room")
	_ = revertCmd.MarkFlagRequired("id")
	_ = revertCmd.MarkFlagRequired("author")

	diffCmd := &cobra.Command{
		Use:   "diff --from VERSION_ID --to VERSION_ID",
		Short: "Show the plain text difference between two versions of a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()
			res, err := c.Diff(ctx, fromID, toID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: version %d -> %d\n", res.RoomID, res.FromVersion, res.ToVersion)
			if res.Unchanged {
				fmt.Fprintln(out, "text unchanged")
				return nil
			}
			fmt.Fprintln(out, diffmatchpatch.New().DiffPrettyText(res.Diffs))
			return nil
		},
	}
	diffCmd.Flags().Int64Var(&fromID, "from", 0, "older version id")
	diffCmd.Flags().Int64Var(&toID, "to", 0, "newer version id")
	_ = diffCmd.MarkFlagRequired("from")
	_ = diffCmd.MarkFlagRequired("to")

	documentCmd := &cobra.Command{
		Use:   "document --room ROOM",
		Short: "Print the document record of a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := flags.client()
			if err != nil {
				return err
			}
			ctx, cancel := flags.context()
			defer cancel()
			doc, err := c.Document(ctx, roomID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), doc)
		},
	}
	documentCmd.Flags().StringVarP(&roomID, "room", "r", "", "room id")
	_ = documentCmd.MarkFlagRequired("room")

	watchCmd := &cobra.Command{
		Use:   "watch --room ROOM [--user EMAIL]",
		Short: "Print room events until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := flags.context()
			defer cancel()
			out := cmd.OutOrStdout()
			rc, err := editor.DialRoom(ctx, flags.server, roomID, author, func(action string, frame editor.RoomFrame) {
				fmt.Fprintf(out, "%s %s %s\n", time.Now().Format(time.TimeOnly), action, string(frame.Data))
			}, bootstrapLogger)
			if err != nil {
				return err
			}
			bootstrapLogger.Info("watching room", zap.String("roomId", roomID))

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(quit)
			select {
			case <-quit:
				rc.Close()
				<-rc.Done()
			case <-rc.Done():
				bootstrapLogger.Info("room connection closed")
			}
			return nil
		},
	}
	watchCmd.Flags().StringVarP(&roomID, "room", "r", "", "room id")
	watchCmd.Flags().StringVarP(&author, "user", "u", "", "user email announced to the room")
	_ = watchCmd.MarkFlagRequired("room")

	versionsCmd.AddCommand(listCmd, getCmd, saveCmd, revertCmd, diffCmd, documentCmd, watchCmd)
	rootCmd.AddCommand(versionsCmd)
}
