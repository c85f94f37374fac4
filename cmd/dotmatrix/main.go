package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli"

	"github.com/dotmatrix-emu/dotmatrix/dotmatrix"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/render"
	"github.com/dotmatrix-emu/dotmatrix/dotmatrix/video"
)

func main() {
	app := cli.NewApp()
	app.Name = "dotmatrix"
	app.Description = "A monochrome Game Boy emulator"
	app.Usage = "dotmatrix [options] <ROM file>"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "rom",
			Usage: "Path to the ROM file",
		},
		cli.BoolFlag{
			Name:  "headless",
			Usage: "Run the emulator without a graphical interface",
		},
		cli.IntFlag{
			Name:  "frames",
			Usage: "Number of frames to run in headless mode (required for headless)",
			Value: 0,
		},
		cli.BoolFlag{
			Name:  "sdl2",
			Usage: "Present in an SDL2 window instead of the terminal (requires a build with -tags sdl2)",
		},
		cli.BoolFlag{
			Name:  "print-frame",
			Usage: "Print the final frame as text after a headless run",
		},
		cli.BoolFlag{
			Name:  "print-serial",
			Usage: "Print the serial port transcript after a headless run",
		},
		cli.StringFlag{
			Name:  "save",
			Usage: "Path for battery-backed save RAM (loaded on start, written on exit)",
		},
	}
	app.Action = runEmulator

	err := app.Run(os.Args)
	if err != nil {
		slog.Error("Error running emulator", "error", err)
		os.Exit(1)
	}
}

func runEmulator(c *cli.Context) error {
	romPath := c.String("rom")
	if romPath == "" {
		if c.NArg() > 0 {
			romPath = c.Args().Get(0)
		} else {
			cli.ShowAppHelp(c)
			return errors.New("no ROM path provided")
		}
	}

	machine, err := dotmatrix.NewWithFile(romPath)
	if err != nil {
		return err
	}

	savePath := c.String("save")
	if savePath != "" {
		if data, err := os.ReadFile(savePath); err == nil {
			machine.LoadSaveRAM(data)
			slog.Info("Loaded save RAM", "path", savePath, "bytes", len(data))
		}
		defer writeSaveRAM(machine, savePath)
	}

	if c.Bool("headless") {
		return runHeadless(c, machine)
	}

	if c.Bool("sdl2") {
		renderer, err := render.NewSDL2Renderer(machine)
		if err != nil {
			return err
		}
		return renderer.Run()
	}

	renderer, err := render.NewTerminalRenderer(machine)
	if err != nil {
		return err
	}
	return renderer.Run()
}

func runHeadless(c *cli.Context, machine *dotmatrix.DMG) error {
	frames := c.Int("frames")
	if frames <= 0 {
		return errors.New("headless mode requires --frames option with a positive value")
	}

	slog.Info("Running headless mode", "frames", frames)

	for i := 0; i < frames; i++ {
		if err := machine.RunUntilFrame(); err != nil {
			return err
		}
	}

	slog.Info("Headless execution completed", "frames", frames)

	if c.Bool("print-frame") {
		printFrame(machine.Frame())
	}
	if c.Bool("print-serial") {
		fmt.Print(machine.SerialTranscript())
	}
	return nil
}

func writeSaveRAM(machine *dotmatrix.DMG, path string) {
	data := machine.SaveRAM()
	if data == nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		slog.Error("Failed to write save RAM", "path", path, "error", err)
		return
	}
	slog.Info("Wrote save RAM", "path", path, "bytes", len(data))
}

var frameChars = [4]rune{'░', '▒', '▓', '█'}

func printFrame(fb *video.FrameBuffer) {
	for y := 0; y < video.FramebufferHeight; y++ {
		line := make([]rune, 0, video.FramebufferWidth)
		for _, shade := range fb.Row(y) {
			line = append(line, frameChars[shade&3])
		}
		fmt.Println(string(line))
	}
}
