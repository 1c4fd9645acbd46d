package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lodrag/internal/config"
	"github.com/kailas-cloud/lodrag/internal/domain"
	crawluc "github.com/kailas-cloud/lodrag/internal/usecase/crawl"
	jobuc "github.com/kailas-cloud/lodrag/internal/usecase/job"
	"github.com/kailas-cloud/lodrag/internal/version"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(cfg config.Config, logger *zap.Logger) *cli.App {
	app := &cli.App{
		Name:    "lodrag",
		Usage:   "Forum bookmark RAG server and pipeline tools",
		Version: version.String(),
		Commands: []*cli.Command{
			serveCmd(cfg, logger),
			crawlCmd(cfg, logger),
			bookmarksCmd(cfg, logger),
			indexCmd(cfg, logger),
			searchCmd(cfg, logger),
			statsCmd(cfg, logger),
			jobCmd(cfg, logger),
		},
	}
	return app
}

// withContainer builds the composition root for one command and releases it afterwards.
func withContainer(cfg config.Config, logger *zap.Logger, fn func(c *cli.Context, ct *container) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		ct, err := newContainer(c.Context, cfg, logger)
		if err != nil {
			return err
		}
		defer ct.Close()
		return fn(c, ct)
	}
}

func crawlCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "crawl",
		Usage: "Crawl new posts into raw records",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Value: "all", Usage: "lod_nexon|naver_cafe|all"},
			&cli.IntFlag{Name: "pages", Aliases: []string{"p"}, Usage: "Pages per board (default: configured full depth)"},
			&cli.BoolFlag{Name: "incremental", Aliases: []string{"i"}, Usage: "Stop at the first known post"},
		},
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			sources := domain.Sources()
			if sel := c.String("source"); sel != "all" {
				src, err := domain.ParseSource(sel)
				if err != nil {
					return err
				}
				sources = []domain.Source{src}
			}

			return runCrawls(c.Context, c.App.Writer, sources, cfg.Crawl.NaverCafe.SessionPath,
				func(ctx context.Context, src domain.Source) (crawluc.Stats, error) {
					svc := ct.crawlers[src]
					switch {
					case c.Bool("incremental"):
						return svc.CrawlIncremental(ctx)
					case c.Int("pages") > 0:
						return svc.CrawlFull(ctx, c.Int("pages"))
					default:
						return svc.CrawlFull(ctx, fullPages(cfg, src))
					}
				})
		}),
	}
}

// runCrawls crawls each source in turn. A failing source is reported and
// the remaining sources still run.
func runCrawls(
	ctx context.Context, out io.Writer, sources []domain.Source, sessionPath string,
	crawl func(context.Context, domain.Source) (crawluc.Stats, error),
) error {
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := crawl(ctx, src)
		switch {
		case errors.Is(err, domain.ErrSessionExpired):
			fmt.Fprintf(out, "🚨 %s: 세션이 만료되었습니다. 세션 파일을 다시 만들어 %s 위치에 두세요.\n", src, sessionPath)
			continue
		case errors.Is(err, domain.ErrCredentialMissing):
			fmt.Fprintf(out, "❌ %s: %v\n", src, err)
			continue
		case err != nil:
			fmt.Fprintf(out, "❌ %s 크롤링 실패: %v\n", src, err)
			continue
		}
		fmt.Fprintf(out, "✅ %s 크롤링 완료: 신규 %d건, 스킵 %d건\n", src, st.New, st.Skipped)
	}
	return nil
}

func bookmarksCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "bookmarks",
		Usage: "Create bookmarks for every pending record",
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			st, err := ct.synth.CreateAll(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "✅ 책갈피 생성 완료: %d건 생성, %d건 실패 (총 %d건)\n",
				st.Created, st.Failed, st.Total)
			return nil
		}),
	}
}

func indexCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Embed every unindexed bookmark into the vector store",
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			st, err := ct.indexer.ProcessAll(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "✅ 임베딩 완료: %d건 저장, %d건 스킵, %d건 실패\n",
				st.Saved, st.Skipped, st.Failed)
			if calls, tokens := ct.docEmbedder.Usage(); calls > 0 {
				fmt.Fprintf(c.App.Writer, "   임베딩 호출 %d회, 토큰 %d개\n", calls, tokens)
			}
			return nil
		}),
	}
}

func searchCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Ask a question against the index",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "source", Aliases: []string{"s"}, Usage: "lod_nexon|naver_cafe"},
		},
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			query := c.Args().First()
			if query == "" {
				return fmt.Errorf("query is required")
			}
			var src domain.Source
			if s := c.String("source"); s != "" {
				parsed, err := domain.ParseSource(s)
				if err != nil {
					return err
				}
				src = parsed
			}

			ans, err := ct.retriever.Ask(c.Context, query, src)
			if err != nil {
				return err
			}

			out := c.App.Writer
			fmt.Fprintf(out, "🔍 검색: %s\n📊 신뢰도: %s\n\n💬 답변:\n%s\n", query, ans.Confidence, ans.Answer)
			if len(ans.Sources) > 0 {
				fmt.Fprintln(out, "\n📋 출처:")
				for _, s := range ans.Sources {
					fmt.Fprintf(out, "  [%s] %s (score: %.2f)\n  🔗 %s\n", s.BoardName, s.Title, s.Score, s.URL)
				}
			}
			return nil
		}),
	}
}

func statsCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show record, bookmark and vector counts",
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			return outputJSON(c.App.Writer, ct.stats.GetReport(c.Context))
		}),
	}
}

func jobCmd(cfg config.Config, logger *zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "job",
		Usage:     "Run one pipeline job now",
		ArgsUsage: "<incremental|catchup|full>",
		Action: withContainer(cfg, logger, func(c *cli.Context, ct *container) error {
			kind, err := jobuc.ParseKind(c.Args().First())
			if err != nil {
				return err
			}
			rep, err := ct.jobs.Run(c.Context, kind)
			if err != nil {
				return err
			}
			return outputJSON(c.App.Writer, rep)
		}),
	}
}

func fullPages(cfg config.Config, src domain.Source) int {
	if src == domain.SourceNaverCafe {
		return cfg.Crawl.NaverCafe.FullPages
	}
	return cfg.Crawl.LodNexon.FullPages
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
