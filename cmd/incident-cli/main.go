package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"townmap/internal/cluster"
	"townmap/internal/migrate"
	"townmap/internal/overlay"
	"townmap/internal/store"
	"townmap/internal/utils"

	"github.com/joho/godotenv"
)

// 解析 add 命令参数：<id> <category> <severity> <lon> <lat>
func parseIncident(parts []string) (store.Incident, error) {
	if len(parts) != 5 {
		return store.Incident{}, fmt.Errorf("need 5 fields, got %d", len(parts))
	}
	sev, err := cluster.ParseSeverity(parts[2])
	if err != nil {
		return store.Incident{}, err
	}
	lon, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return store.Incident{}, fmt.Errorf("bad lon %q", parts[3])
	}
	lat, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return store.Incident{}, fmt.Errorf("bad lat %q", parts[4])
	}
	in := store.Incident{ID: parts[0], Category: strings.ToLower(parts[1]), Severity: sev.String(), Lon: lon, Lat: lat}
	return in, store.ValidateIncident(in)
}

func printHelp() {
	fmt.Println("commands:")
	fmt.Println("  add <id> <accident|construction> <low|medium|high> <lon> <lat>")
	fmt.Println("  resolve <id>")
	fmt.Println("  list [limit]")
	fmt.Println("  overlay set <region> <value>")
	fmt.Println("  overlay del <region>")
	fmt.Println("  overlay list")
	fmt.Println("  help")
	fmt.Println("  exit")
}

// 文档注释：事件与叠加数值维护命令行
// 背景：运维手工录入事故/施工事件、修正区域叠加数值；连接参数来自 .env 或 --env 指定文件。
// 约束：Redis 不可用时 overlay 子命令报错，事件命令不受影响。
func main() {
	envFile := ".env"
	for i := 1; i < len(os.Args); i++ {
		if os.Args[i] == "--env" && i+1 < len(os.Args) {
			envFile = os.Args[i+1]
			i++
		} else if strings.HasSuffix(os.Args[i], ".env") {
			envFile = os.Args[i]
		}
	}
	_ = godotenv.Load(envFile)
	ctx := context.Background()

	db, err := utils.OpenPostgresFromEnv(ctx)
	if err != nil {
		fmt.Println("db error:", err)
		os.Exit(1)
	}
	if err := migrate.EnsureSchema(ctx, db); err != nil {
		fmt.Println("schema error:", err)
		os.Exit(1)
	}
	st := store.AttachDB(db)
	defer st.Close()

	key := os.Getenv("OVERLAY_KEY")
	if key == "" {
		key = "overlay:rain"
	}
	rc, err := utils.OpenRedisFromEnv(ctx)
	if err != nil {
		fmt.Println("redis unavailable, overlay commands disabled:", err)
		rc = nil
	}
	ov := overlay.New(rc, key)

	fmt.Println("incident cli ready")
	printHelp()
	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !in.Scan() {
			break
		}
		parts := strings.Fields(in.Text())
		if len(parts) == 0 {
			continue
		}
		switch strings.ToLower(parts[0]) {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "add", "set":
			inc, err := parseIncident(parts[1:])
			if err != nil {
				fmt.Println("usage: add <id> <category> <severity> <lon> <lat>:", err)
				continue
			}
			if err := st.UpsertIncident(ctx, inc); err != nil {
				fmt.Println("error:", err)
			} else {
				fmt.Println("ok")
			}
		case "resolve", "del":
			if len(parts) < 2 {
				fmt.Println("usage: resolve <id>")
				continue
			}
			ok, err := st.ResolveIncident(ctx, parts[1])
			switch {
			case err != nil:
				fmt.Println("error:", err)
			case !ok:
				fmt.Println("not found")
			default:
				fmt.Println("ok")
			}
		case "list":
			limit := 20
			if len(parts) >= 2 {
				if n, e := strconv.Atoi(parts[1]); e == nil && n > 0 {
					limit = n
				}
			}
			xs, err := st.ListActiveIncidents(ctx, limit)
			if err != nil {
				fmt.Println("error:", err)
				continue
			}
			for _, x := range xs {
				fmt.Printf("%s %s %s (%.5f, %.5f) %s\n", x.ID, x.Category, x.Severity, x.Lon, x.Lat, x.ReportedAt.Format("2006-01-02 15:04"))
			}
		case "overlay":
			runOverlay(ctx, ov, parts[1:])
		default:
			fmt.Println("unknown command")
		}
	}
}

func runOverlay(ctx context.Context, ov *overlay.Source, args []string) {
	if len(args) == 0 {
		fmt.Println("usage: overlay set|del|list ...")
		return
	}
	switch args[0] {
	case "set":
		if len(args) != 3 {
			fmt.Println("usage: overlay set <region> <value>")
			return
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			fmt.Println("bad value:", args[2])
			return
		}
		if err := ov.Set(ctx, args[1], v); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")
	case "del":
		if len(args) != 2 {
			fmt.Println("usage: overlay del <region>")
			return
		}
		if err := ov.Delete(ctx, args[1]); err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println("ok")
	case "list":
		vals, err := ov.Values(ctx)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		keys := make([]string, 0, len(vals))
		for k := range vals {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s = %g\n", k, vals[k])
		}
		if len(keys) == 0 {
			fmt.Println("none")
		}
	default:
		fmt.Println("unknown overlay command")
	}
}
