package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/ffi-runtime/boundary"
	"github.com/wippyai/ffi-runtime/executor"
	"github.com/wippyai/ffi-runtime/exports"
	"github.com/wippyai/ffi-runtime/host"
	"github.com/wippyai/ffi-runtime/layout"
)

var (
	spawnerOpts = struct {
		local bool
	}{}

	layoutOpts = struct {
		ptrSize uint32
	}{}

	callTimeout = 10 * time.Second

	spawnerCmd = &cobra.Command{
		Use:   "spawner",
		Short: "Block on a task that spawns another task and awaits it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := runSpawner(cmd.Context(), spawnerOpts.local)
			if err != nil {
				return err
			}
			printResult("test_spawner", out)
			return nil
		},
	}

	layoutCmd = &cobra.Command{
		Use:   "layout",
		Short: "Print the boundary layout of the protocol structs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := layout.Protocol(layoutOpts.ptrSize)
			if err != nil {
				return err
			}
			fmt.Println(titleStyle.Render(fmt.Sprintf("layout, %d-byte pointers", layoutOpts.ptrSize)))
			for _, e := range entries {
				fmt.Printf("%s %s\n", opStyle.Render(e.Name),
					argStyle.Render(fmt.Sprintf("size=%d align=%d", e.Info.Size, e.Info.Align)))
				for _, f := range sortedFields(e.Info.FieldOffs) {
					fmt.Printf("  %-12s +%d\n", f, e.Info.FieldOffs[f])
				}
			}
			return nil
		},
	}

	guestCmd = &cobra.Command{
		Use:   "guest",
		Short: "Call the ABI functions from a wasm guest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGuest(cmd.Context())
		},
	}
)

func init() {
	for _, op := range operations() {
		if op.name == "test_spawner" {
			continue
		}
		rootCmd.AddCommand(opCommand(op))
	}

	spawnerCmd.Flags().BoolVar(&spawnerOpts.local, "local", false, "Use a single-goroutine local executor instead of the pool")
	layoutCmd.Flags().Uint32Var(&layoutOpts.ptrSize, "ptr-size", 4, "Pointer size in bytes (4 for wasm32, 8 for 64-bit)")

	rootCmd.AddCommand(spawnerCmd, layoutCmd, guestCmd)
}

// opCommand exposes op as "ffirun <op-name> args...".
func opCommand(op operation) *cobra.Command {
	use := strings.ReplaceAll(op.name, "_", "-")
	var names []string
	for _, p := range op.params {
		names = append(names, "<"+p.name+">")
	}

	args := cobra.ExactArgs(len(op.params))
	if op.variadic {
		args = cobra.ArbitraryArgs
	}

	return &cobra.Command{
		Use:   strings.TrimSpace(use + " " + strings.Join(names, " ")),
		Short: "Call " + op.name,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), callTimeout)
			defer cancel()
			out, err := op.run(ctx, args)
			if err != nil {
				return err
			}
			printResult(op.name, out)
			return nil
		},
	}
}

func sortedFields(offs map[string]uint32) []string {
	names := make([]string, 0, len(offs))
	for n := range offs {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		if offs[names[i]] != offs[names[j]] {
			return offs[names[i]] < offs[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}

// runGuest loads a guest importing every ABI function and calls them from
// the host through its exports.
func runGuest(ctx context.Context) error {
	_, err := withExecutor(ctx, false, func(ex executor.Executor) (string, error) {
		e := producer(exports.WithExecutor(ex))
		reg := host.NewRegistry()
		if err := reg.RegisterHost(e); err != nil {
			return "", err
		}
		rt, err := host.New(ctx, reg,
			host.WithLogger(logger.Named("host")),
			host.WithRuntimeConfig(cfg.Host.RuntimeConfig()))
		if err != nil {
			return "", err
		}
		defer rt.Close(ctx)

		g, err := reg.Guest(e.Namespace(), cfg.Host.Pages)
		if err != nil {
			return "", err
		}
		inst, err := rt.Load(ctx, g.Encode())
		if err != nil {
			return "", err
		}
		defer inst.Close(ctx)
		if err := e.Bind(inst.Memory(), nil); err != nil {
			return "", err
		}

		fmt.Println(titleStyle.Render("guest " + inst.Name()))
		return "", callGuest(ctx, inst)
	})
	return err
}

func callGuest(ctx context.Context, inst *host.Instance) error {
	mem := inst.Memory()
	alloc := boundary.WrapAllocator(ctx, inst.Function("cabi_realloc"))
	if alloc == nil {
		return fmt.Errorf("guest exports no cabi_realloc")
	}
	call := func(name string, params ...uint64) (uint64, error) {
		res, err := inst.Call(ctx, name, params...)
		if err != nil || len(res) == 0 {
			return 0, err
		}
		return res[0], nil
	}

	xs := []int32{-27, -42, 9, -8}
	ref, err := boundary.WriteI32s(mem, alloc, xs)
	if err != nil {
		return err
	}
	defer alloc.Free(ref.Ptr, ref.Len*4, 4)
	p, err := call("max", uint64(ref.Ptr), uint64(ref.Len))
	if err != nil {
		return err
	}
	v, err := mem.ReadU32(uint32(p))
	if err != nil {
		return err
	}
	printResult(fmt.Sprintf("max(%v)", xs), fmt.Sprintf("*%#x = %d", p, int32(v)))

	a, err := boundary.NewCharPBox(mem, alloc, "Hello, ")
	if err != nil {
		return err
	}
	defer boundary.FreeCharP(mem, alloc, a.Ptr)
	b, err := boundary.NewCharPBox(mem, alloc, "World!")
	if err != nil {
		return err
	}
	defer boundary.FreeCharP(mem, alloc, b.Ptr)

	p, err = call("concat", uint64(a.Ptr), uint64(b.Ptr))
	if err != nil {
		return err
	}
	s, err := boundary.ReadCharP(mem, uint32(p))
	if err != nil {
		return err
	}
	printResult("concat", fmt.Sprintf("%q", s))
	if _, err := call("free_char_p", p); err != nil {
		return err
	}

	for _, name := range []string{"async_get_ft", "test_spawner"} {
		r, err := call(name)
		if err != nil {
			return err
		}
		printResult(name, fmt.Sprint(api.DecodeI32(r)))
	}
	return nil
}
