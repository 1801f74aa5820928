package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fileshredder_pro/internal/config"
	"fileshredder_pro/internal/engine"
	"fileshredder_pro/internal/logging"
	"fileshredder_pro/internal/pattern"
	"fileshredder_pro/internal/reporting"
	"fileshredder_pro/internal/shred"
	"fileshredder_pro/internal/system"
)

const (
	Version = "1.0.2"
	AppName = "File Shredder Pro"

	// Exit codes
	EXIT_SUCCESS = 0
	EXIT_ERROR   = 1
	EXIT_WARNING = 2
)

var (
	cfg        *config.Config
	logger     *logging.ShredLogger
	verbose    bool
	configPath string

	standardName  string
	customPattern string
	passes        int
	recursive     bool
	chunkSize     int64
	workers       int
	noVerify      bool
	keepMeta      bool
)

// CLI команды
var rootCmd = &cobra.Command{
	Use:     "shredder",
	Short:   "File Shredder Pro - необратимое уничтожение файлов",
	Long:    "Утилита безопасного уничтожения файлов: многопроходная перезапись, затирание метаданных и свободного места. Восстановление после затирания невозможно.\n\nВНИМАНИЕ: движок перезаписывает данные паттернами; аппаратную остаточную намагниченность за пределами перезаписи он не устраняет - для этого существует физическое уничтожение носителя.",
	Version: Version,
}

var shredCmd = &cobra.Command{
	Use:   "shred [файлы и директории]",
	Short: "Затереть файлы или директории",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runShred,
}

var wipeFreeCmd = &cobra.Command{
	Use:   "wipe-free [корень тома]",
	Short: "Затереть свободное место тома",
	Args:  cobra.ExactArgs(1),
	RunE:  runWipeFree,
}

var infoCmd = &cobra.Command{
	Use:   "info [путь]",
	Short: "Показать информацию о томе",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Подробный вывод")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Путь к конфигурации")

	shredCmd.Flags().StringVarP(&standardName, "standard", "s", "", "Стандарт затирания (zero/one/random/dod3/gutmann35/custom)")
	shredCmd.Flags().StringVar(&customPattern, "pattern", "", "Пользовательский паттерн (hex), только для custom")
	shredCmd.Flags().IntVarP(&passes, "passes", "p", 0, "Количество проходов, только для custom (1-35)")
	shredCmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Рекурсивное уничтожение директорий")
	shredCmd.Flags().Int64Var(&chunkSize, "chunk-size", 0, "Подсказка размера чанка в байтах")
	shredCmd.Flags().IntVarP(&workers, "workers", "w", 0, "Количество воркеров (0 = по числу CPU)")
	shredCmd.Flags().BoolVar(&noVerify, "no-verify", false, "Отключить верификацию после затирания")
	shredCmd.Flags().BoolVar(&keepMeta, "keep-metadata", false, "Не затирать метаданные (имя, временные метки)")

	wipeFreeCmd.Flags().StringVarP(&standardName, "standard", "s", "", "Стандарт затирания")

	rootCmd.AddCommand(shredCmd, wipeFreeCmd, infoCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка: %v\n", err)
		os.Exit(EXIT_ERROR)
	}
}

func setup() (*engine.Engine, error) {
	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err = logging.NewShredLogger(cfg, verbose)
	if err != nil {
		return nil, err
	}

	var audit reporting.AuditAppender
	if cfg.Reporting.AuditFile != "" {
		audit, err = reporting.NewFileAuditAppender(cfg.Reporting.AuditFile)
		if err != nil {
			return nil, err
		}
	}

	return engine.New(cfg, logger, audit), nil
}

func buildOptions() (engine.Options, error) {
	opts := engine.Options{
		Recursive:     recursive,
		ChunkSizeHint: chunkSize,
		WorkerCount:   workers,
		Verify:        cfg.Shred.Verify && !noVerify,
		DestroyMeta:   cfg.Shred.DestroyMeta && !keepMeta,
	}

	name := standardName
	if name == "" {
		name = cfg.Shred.Standard
	}
	std, err := pattern.ValidateStandard(name)
	if err != nil {
		return opts, err
	}
	opts.Standard = std

	if std == pattern.StandardCustom {
		raw := customPattern
		if raw == "" {
			raw = cfg.Shred.CustomPattern
		}
		decoded, err := hex.DecodeString(raw)
		if err != nil {
			return opts, fmt.Errorf("некорректный hex-паттерн %q: %w", raw, err)
		}
		opts.CustomPattern = decoded
		opts.Passes = passes
		if opts.Passes == 0 {
			opts.Passes = cfg.Shred.Passes
		}
	}

	if chunkSize == 0 {
		opts.ChunkSizeHint = cfg.Shred.ChunkSize
	}

	return opts, nil
}

func runShred(cmd *cobra.Command, args []string) error {
	eng, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	startTime := time.Now()
	requestID, err := eng.Submit(args, opts)
	if err != nil {
		return err
	}

	exitCode := watchRequest(eng, requestID)

	if cfg.Reporting.Enabled {
		report := reporting.GenerateReport(requestID, Version, string(opts.Standard), eng.Results(requestID), startTime, time.Now())
		if path, err := reporting.SaveLocal(report, cfg.Reporting.LocalPath); err != nil {
			logger.Log("WARN", "Не удалось сохранить отчёт", "error", err.Error())
		} else {
			logger.Log("INFO", "Отчёт сохранён", "path", path)
		}
	}

	if exitCode != EXIT_SUCCESS {
		os.Exit(exitCode)
	}
	return nil
}

func runWipeFree(cmd *cobra.Command, args []string) error {
	eng, err := setup()
	if err != nil {
		return err
	}
	defer logger.Close()

	opts, err := buildOptions()
	if err != nil {
		return err
	}

	requestID, err := eng.WipeFreeSpace(args[0], opts)
	if err != nil {
		return err
	}

	if code := watchRequest(eng, requestID); code != EXIT_SUCCESS {
		os.Exit(code)
	}
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	if _, err := setup(); err != nil {
		return err
	}
	defer logger.Close()

	vol, err := system.GetVolumeInfoForPath(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Том:             %s\n", vol.Mountpoint)
	fmt.Printf("Файловая система: %s\n", vol.Fstype)
	fmt.Printf("Всего:           %.1f GB\n", float64(vol.TotalSize)/1024/1024/1024)
	fmt.Printf("Свободно:        %.1f GB\n", float64(vol.FreeSize)/1024/1024/1024)
	fmt.Printf("Системный:       %v\n", vol.IsSystem)
	return nil
}

// watchRequest потребляет поток событий до завершения запроса.
// Ctrl+C запускает кооперативную отмену.
func watchRequest(eng *engine.Engine, requestID string) int {
	events, err := eng.Subscribe(requestID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка подписки: %v\n", err)
		return EXIT_ERROR
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	exitCode := EXIT_SUCCESS
	for {
		select {
		case <-sigCh:
			fmt.Println("\nОтмена по сигналу, задачи останавливаются после текущего чанка...")
			eng.Cancel(requestID)

		case ev, ok := <-events:
			if !ok {
				return exitCode
			}
			if ev.Progress != nil {
				printProgress(ev.Progress)
			}
			if ev.Result != nil {
				printResult(ev.Result)
				switch ev.Result.Status {
				case shred.StatusFailed:
					exitCode = EXIT_ERROR
				case shred.StatusSkipped, shred.StatusCancelled:
					if exitCode == EXIT_SUCCESS {
						exitCode = EXIT_WARNING
					}
				}
			}
		}
	}
}

func printProgress(p *shred.ProgressSnapshot) {
	if p.TotalBytesPlanned == 0 {
		return
	}
	percent := float64(p.BytesDone) / float64(p.TotalBytesPlanned) * 100
	eta := "-"
	if p.EtaMs > 0 {
		eta = (time.Duration(p.EtaMs) * time.Millisecond).Round(time.Second).String()
	}
	fmt.Printf("\rПрогресс: %.1f%% | Задачи: %d/%d | ETA: %s   ", percent, p.TasksDone, p.TasksTotal, eta)
}

func printResult(r *shred.OperationResult) {
	mark := "✓"
	if r.Status != shred.StatusDone {
		mark = "✗"
	}
	fmt.Printf("\n%s %s [%s] проходов=%d байт=%d верифицирован=%v", mark, r.TargetPath, r.Status, r.PassesCompleted, r.BytesOverwritten, r.Verified)
	if r.Error != "" {
		fmt.Printf(" ошибка=%s", r.Error)
	}
	fmt.Println()
}
