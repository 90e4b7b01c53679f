// Package interactive provides the interactive task shell for the CLI.
//
// This file contains the shell loop: a mode menu in front of a readline
// input loop that feeds the task runner.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/droidpilot/cli/internal/runner"
	"github.com/droidpilot/cli/internal/ui"
)

// REPL handles the interactive shell loop.
type REPL struct {
	session *Session
	rl      *readline.Instance
}

// NewREPL creates a new shell around a session.
//
// Parameters:
//   - session: The interactive session to use
//
// Returns:
//   - *REPL: A new shell instance
//   - error: Terminal setup errors
func NewREPL(session *Session) (*REPL, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          ui.TitleStyle.Render("droidpilot> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("init readline: %w", err)
	}
	return &REPL{session: session, rl: rl}, nil
}

// Run starts the shell. It alternates between the mode menu and the input
// loop until the user quits or the context is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation
//
// Returns:
//   - error: Read errors other than a clean exit
func (r *REPL) Run(ctx context.Context) error {
	defer r.rl.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		quit, err := r.chooseMode()
		if err != nil || quit {
			return err
		}

		again, err := r.inputLoop(ctx)
		if err != nil || !again {
			return err
		}
	}
}

// chooseMode prints the mode menu and applies the choice.
//
// Returns:
//   - bool: True when the user asked to quit
//   - error: Read errors
func (r *REPL) chooseMode() (bool, error) {
	fmt.Println()
	ui.PrintInfo("请选择输入模式:")
	fmt.Printf("  %s %s\n", ui.TitleStyle.Render("1."), "快捷指令 (ss:联系人:内容)")
	fmt.Printf("  %s %s\n", ui.TitleStyle.Render("2."), "自然语言 (例: 给张三发消息说你好)")
	fmt.Printf("  %s %s\n", ui.TitleStyle.Render("q."), "退出")

	for {
		line, err := r.readLine("> ")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return true, nil
			}
			return false, err
		}

		switch strings.TrimSpace(line) {
		case "1":
			r.session.SetMode(ModeFast)
			return false, nil
		case "2":
			r.session.SetMode(ModeNatural)
			return false, nil
		case "q", "quit", "exit":
			return true, nil
		default:
			ui.PrintWarning("请输入 1、2 或 q")
		}
	}
}

// inputLoop reads and executes commands until the user returns to the menu.
//
// Returns:
//   - bool: True when the menu should be shown again
//   - error: Read errors
func (r *REPL) inputLoop(ctx context.Context) (bool, error) {
	ui.PrintDim("当前模式: %s。输入 q 返回菜单, :help 查看命令。", r.session.Mode())

	for {
		if ctx.Err() != nil {
			return false, nil
		}

		line, err := r.rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				return true, nil
			}
			if errors.Is(err, io.EOF) {
				return false, nil
			}
			return false, err
		}

		cmd := ParseCommand(line)
		switch cmd.Type {
		case CommandMenu:
			return true, nil

		case CommandQuit:
			return false, nil

		case CommandHelp:
			r.printHelp()

		case CommandCopy:
			if err := r.session.CopyLast(); err != nil {
				ui.PrintError("%v", err)
			} else {
				ui.PrintSuccess("已复制上次结果到剪贴板")
			}

		case CommandHistory:
			history := r.session.History()
			if len(history) == 0 {
				ui.PrintDim("本次会话还没有执行过任务")
				continue
			}
			for i, res := range history {
				fmt.Printf("  %s %s\n", ui.DimStyle.Render(fmt.Sprintf("%d.", i+1)), Summary(res))
			}

		case CommandClear:
			r.session.ClearHistory()
			ui.PrintSuccess("历史已清空")

		case CommandTask:
			if again := r.runTask(ctx, cmd.Task); again {
				return true, nil
			}
		}
	}
}

// runTask executes one utterance and prints the result. It reports whether
// the shell should fall back to the mode menu, which happens when the input
// could not be classified.
func (r *REPL) runTask(ctx context.Context, task string) bool {
	ui.StartSpinner("执行中…")
	res, err := r.session.RunTask(ctx, task)
	ui.StopSpinner()

	if res != nil {
		ui.PrintTaskResult(res)
	}

	switch {
	case err == nil:
		return false
	case errors.Is(err, runner.ErrInvalidInput):
		ui.PrintWarning("无法理解该输入")
		ui.PrintDim("%s", runner.Guidance)
		return false
	case errors.Is(err, runner.ErrClassificationFailed):
		// The utterance defeated both grammars; send the user back to
		// the menu rather than guessing a handler.
		ui.PrintWarning("无法识别任务类型, 请重新选择模式")
		return true
	default:
		ui.PrintError("%v", err)
		return false
	}
}

// printHelp shows the shell commands.
func (r *REPL) printHelp() {
	ui.PrintInfo("命令:")
	fmt.Println("  q, 空行     返回模式菜单")
	fmt.Println("  :copy       复制上次结果 JSON 到剪贴板")
	fmt.Println("  :history    查看本次会话的任务记录")
	fmt.Println("  :clear      清空任务记录")
	fmt.Println("  :quit       退出")
	fmt.Println()
	ui.PrintDim("其余输入作为任务执行, 例如: ss:张三:你好")
}

// readLine reads one line with a temporary prompt.
func (r *REPL) readLine(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	defer r.rl.SetPrompt(ui.TitleStyle.Render("droidpilot> "))
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "", io.EOF
	}
	return line, err
}
