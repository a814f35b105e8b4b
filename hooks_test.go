package openfetch

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/broady/openfetch/testutil"
)

func TestHookBus_Channel(t *testing.T) {
	bus := NewHookBus("")

	if got := bus.Channel(HookRequest, ""); got != "open-fetch:onRequest" {
		t.Errorf("unexpected global channel %q", got)
	}
	if got := bus.Channel(HookResponseError, "pets"); got != "open-fetch:onResponseError:pets" {
		t.Errorf("unexpected client channel %q", got)
	}

	custom := NewHookBus("api")
	if got := custom.Channel(HookResponse, "pets"); got != "api:onResponse:pets" {
		t.Errorf("unexpected channel %q", got)
	}
}

func TestHookBus_Order(t *testing.T) {
	var mu sync.Mutex
	var order []string
	record := func(name string) Hook {
		return func(ctx context.Context, fc *FetchContext) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	bus := NewHookBus("")
	bus.HookClient(HookRequest, "pets", record("named"))
	bus.Hook(HookRequest, record("global"))
	bus.HookClient(HookRequest, "other", record("other"))

	pets := NewClient("pets",
		WithHookBus(bus),
		WithDoer(testutil.NewRecordingDoer(nil)))

	_, err := pets.Fetch(context.Background(), "https://petstore.example.com/pet", &Options{
		Hooks: Hooks{OnRequest: []Hook{record("local")}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"global", "named", "local"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected %v, got %v", want, order)
			break
		}
	}
}

func TestHookBus_StageCompletesBeforeNext(t *testing.T) {
	var mu sync.Mutex
	var order []string
	bus := NewHookBus("")
	for _, name := range []string{"g1", "g2", "g3"} {
		bus.Hook(HookResponse, func(ctx context.Context, fc *FetchContext) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}
	bus.HookClient(HookResponse, "pets", func(ctx context.Context, fc *FetchContext) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, "named")
		return nil
	})

	fc := &FetchContext{Client: "pets", Kind: HookResponse}
	if err := bus.Fire(context.Background(), fc, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(order) != 4 || order[3] != "named" {
		t.Errorf("expected named hook last, got %v", order)
	}
}

func TestHookBus_Unregister(t *testing.T) {
	calls := 0
	bus := NewHookBus("")
	unregister := bus.Hook(HookRequest, func(ctx context.Context, fc *FetchContext) error {
		calls++
		return nil
	})

	fc := &FetchContext{Client: "pets", Kind: HookRequest}
	bus.Fire(context.Background(), fc, nil)
	unregister()
	bus.Fire(context.Background(), fc, nil)

	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestHookBus_NilRunsLocalOnly(t *testing.T) {
	var bus *HookBus
	called := false
	fc := &FetchContext{Client: "pets", Kind: HookRequest}
	err := bus.Fire(context.Background(), fc, []Hook{func(ctx context.Context, fc *FetchContext) error {
		called = true
		return nil
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected local hook to run")
	}
}

func TestHooks_ErrorAbortsFetch(t *testing.T) {
	boom := errors.New("denied")
	doer := testutil.NewRecordingDoer(nil)
	bus := NewHookBus("")
	bus.Register(Hooks{OnRequest: []Hook{func(ctx context.Context, fc *FetchContext) error {
		return boom
	}}})

	pets := NewClient("pets", WithHookBus(bus), WithDoer(doer))
	_, err := pets.Fetch(context.Background(), "https://petstore.example.com/pet", nil)
	if !errors.Is(err, boom) {
		t.Errorf("expected hook error, got %v", err)
	}
	if doer.Count() != 0 {
		t.Errorf("expected no request, got %d", doer.Count())
	}
}

func TestHooks_ResponseErrorStage(t *testing.T) {
	var kinds []HookKind
	record := func(ctx context.Context, fc *FetchContext) error {
		kinds = append(kinds, fc.Kind)
		return nil
	}
	bus := NewHookBus("")
	bus.RegisterClient("pets", Hooks{
		OnRequest:       []Hook{record},
		OnResponse:      []Hook{record},
		OnResponseError: []Hook{record},
	})

	doer := testutil.NewRecordingDoer(testutil.JSON(http.StatusNotFound, map[string]string{"message": "no pet"}))
	pets := NewClient("pets", WithHookBus(bus), WithDoer(doer))
	_, err := pets.Fetch(context.Background(), "https://petstore.example.com/pet/9", nil)

	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	want := []HookKind{HookRequest, HookResponse, HookResponseError}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("expected %v, got %v", want, kinds)
		}
	}
}

func TestHooks_RequestErrorStage(t *testing.T) {
	var got error
	pets := NewClient("pets", WithDoer(failingDoer{}))
	_, err := pets.Fetch(context.Background(), "https://petstore.example.com/pet", &Options{
		Hooks: Hooks{OnRequestError: []Hook{func(ctx context.Context, fc *FetchContext) error {
			got = fc.Error
			return nil
		}}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if got == nil {
		t.Error("expected onRequestError to see the transport error")
	}
}

type failingDoer struct{}

func (failingDoer) Do(*http.Request) (*http.Response, error) {
	return nil, errors.New("connection refused")
}
