// Package main provides studyctl, a command-line client that runs the study
// pipelines directly against the configured database, object store and gateway.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"study-backend/internal/bootstrap"
	"study-backend/internal/documents"
	"study-backend/internal/files"
	"study-backend/internal/gateway"
	"study-backend/internal/questions"
	"study-backend/internal/shared/auth"
	"study-backend/internal/shared/config"
	"study-backend/internal/shared/entity"
)

var owner string

var rootCmd = &cobra.Command{
	Use:   "studyctl",
	Short: "Study assistant command-line client",
	Long: `Ingest documents and ask questions without going through the HTTP API.

Configuration is read from the same environment variables as the API server.
Set DATABASE_URL to work against persistent storage; without it every command
runs against empty in-memory repositories.`,
	SilenceUsage: true,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Upload a file and extract its text",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the completed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List previously asked questions",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var deleteDocumentCmd = &cobra.Command{
	Use:   "delete-document <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteDocument,
}

var deleteQuestionCmd = &cobra.Command{
	Use:   "delete-question <id>",
	Short: "Delete a question from history",
	Args:  cobra.ExactArgs(1),
	RunE:  runDeleteQuestion,
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the API",
	Args:  cobra.NoArgs,
	RunE:  runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&owner, "owner", "cli", "owner id the command acts as")

	ingestCmd.Flags().String("title", "", "document title (defaults to the file name)")
	documentsCmd.Flags().String("status", "", "filter by status: processing, completed or failed")
	documentsCmd.Flags().String("sort", "-created_date", "sort field, prefix with - for descending")
	documentsCmd.Flags().Int("limit", 0, "maximum number of documents")
	historyCmd.Flags().String("q", "", "search question and answer text")
	historyCmd.Flags().String("order", "newest", "newest or oldest")
	historyCmd.Flags().Int("limit", 0, "maximum number of questions")
	historyCmd.Flags().Bool("group", false, "group questions by day")
	tokenCmd.Flags().String("email", "", "email claim")
	tokenCmd.Flags().String("name", "", "name claim")
	tokenCmd.Flags().Duration("ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(ingestCmd, askCmd, documentsCmd, historyCmd, deleteDocumentCmd, deleteQuestionCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func build() (*bootstrap.App, error) {
	app, err := bootstrap.Build(config.Load())
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return app, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()

	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}

	head := make([]byte, 512)
	n, _ := f.Read(head)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}
	name := filepath.Base(path)
	title, _ := cmd.Flags().GetString("title")

	res, err := app.IngestPipeline.IngestAs(context.Background(), owner, gateway.File{
		Name:        name,
		ContentType: files.ContentType(name, head[:n]),
		Size:        info.Size(),
		Body:        f,
	}, title)
	if res.Document.ID != "" {
		fmt.Printf("Document %s: %s (method %s)\n", res.Document.ID, res.Transition(), res.Method)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d characters\n", len([]rune(res.Document.ExtractedText)))
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()

	ctx := context.Background()
	docs, err := app.DocumentsService.Completed(ctx, owner)
	if err != nil {
		return err
	}
	res, err := app.AnswerPipeline.Answer(ctx, owner, strings.Join(args, " "), docs)
	if err != nil {
		return err
	}

	fmt.Println(res.Answer)
	fmt.Println()
	if res.Confidence != "" {
		fmt.Printf("Confidence: %s\n", res.Confidence)
	}
	fmt.Printf("Question %s, grounded on %d document(s)\n", res.QuestionID, len(res.DocumentIDs))
	return nil
}

func runDocuments(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()

	status, _ := cmd.Flags().GetString("status")
	sortRaw, _ := cmd.Flags().GetString("sort")
	limit, _ := cmd.Flags().GetInt("limit")
	sort, err := entity.ParseSort(sortRaw, documents.SortFields...)
	if err != nil {
		return err
	}

	docs, err := app.DocumentsService.List(context.Background(), owner, documents.Query{
		Status: documents.Status(status),
		Sort:   sort,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tTYPE\tSTATUS\tCREATED")
	for _, d := range docs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Title, d.FileType, d.Status, d.CreatedDate.Format(time.RFC3339))
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()

	search, _ := cmd.Flags().GetString("q")
	order, _ := cmd.Flags().GetString("order")
	limit, _ := cmd.Flags().GetInt("limit")
	group, _ := cmd.Flags().GetBool("group")
	sort, err := questions.SortForOrder(order)
	if err != nil {
		return fmt.Errorf("order must be newest or oldest: %w", err)
	}

	qs, err := app.QuestionsService.History(context.Background(), owner, questions.Query{
		Search: search,
		Sort:   sort,
		Limit:  limit,
	})
	if err != nil {
		return err
	}

	if group {
		for _, g := range questions.GroupByDay(qs) {
			fmt.Println(g.Date)
			for _, q := range g.Questions {
				fmt.Printf("  %s  %s\n", q.ID, q.QuestionText)
			}
		}
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tASKED\tCONFIDENCE\tQUESTION")
	for _, q := range qs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", q.ID, q.CreatedDate.Format(time.RFC3339), q.Confidence, q.QuestionText)
	}
	return w.Flush()
}

func runDeleteDocument(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.DocumentsService.Delete(context.Background(), owner, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted document %s\n", args[0])
	return nil
}

func runDeleteQuestion(cmd *cobra.Command, args []string) error {
	app, err := build()
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.QuestionsService.Delete(context.Background(), owner, args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted question %s\n", args[0])
	return nil
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env == "production")
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	name, _ := cmd.Flags().GetString("name")
	ttl, _ := cmd.Flags().GetDuration("ttl")

	token, err := signer.WithTTL(ttl).Sign(auth.Claims{Sub: owner, Email: email, Name: name})
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
