package registry_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heisenware/vrpc-go/callback"
	"github.com/heisenware/vrpc-go/internal/testutil"
	"github.com/heisenware/vrpc-go/modules/bar"
	"github.com/heisenware/vrpc-go/registry"
)

// call dispatches a wire envelope and returns the raw response fields, so
// tests can distinguish an absent slot from a null one.
func call(t *testing.T, r *registry.Registry, env string) map[string]json.RawMessage {
	t.Helper()
	resp := testutil.CallJSON(t, r, env)
	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(resp), &fields))
	return fields
}

func newBarRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	b := callback.New()
	t.Cleanup(b.Close)
	r := registry.New(b)
	bar.RegisterInto(r)
	return r
}

func TestStaticCall(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"philosophy","a":[]}`)
	require.JSONEq(t, `"I have mixed drinks about feelings."`, string(resp["r"]))
	require.NotContains(t, resp, "e")
}

func TestConstructionMemberDestruction(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	require.JSONEq(t, `"bar1"`, string(resp["r"]))

	resp = call(t, r, `{"c":"bar1","f":"addBottle","a":["gin","spirit","UK"]}`)
	require.JSONEq(t, `null`, string(resp["r"]))
	require.NotContains(t, resp, "e")

	resp = call(t, r, `{"c":"bar1","f":"getSelection","a":[]}`)
	require.JSONEq(t, `[{"name":"gin","category":"spirit","country":"UK"}]`, string(resp["r"]))

	resp = call(t, r, `{"c":"Bar","f":"__delete__","a":["bar1"]}`)
	require.JSONEq(t, `true`, string(resp["r"]))

	resp = call(t, r, `{"c":"Bar","f":"__delete__","a":["bar1"]}`)
	require.JSONEq(t, `false`, string(resp["r"]))

	// The instance is gone; calls against it fail without touching others.
	resp = call(t, r, `{"c":"bar1","f":"getSelection","a":[]}`)
	require.JSONEq(t, `"Could not find context: bar1"`, string(resp["e"]))
	require.NotContains(t, resp, "r")
}

func TestCreateSharedIsIdempotent(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	call(t, r, `{"c":"bar1","f":"addBottle","a":["gin","spirit","UK"]}`)

	// The second creation is a no-op and returns the id unchanged.
	resp := call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	require.JSONEq(t, `"bar1"`, string(resp["r"]))

	resp = call(t, r, `{"c":"bar1","f":"getSelection","a":[]}`)
	require.JSONEq(t, `[{"name":"gin","category":"spirit","country":"UK"}]`, string(resp["r"]))

	require.Equal(t, []string{"bar1"}, r.Instances("Bar"))
}

func TestDeleteRevertsInstanceTables(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	require.Empty(t, r.Instances("Bar"))
	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	require.Equal(t, []string{"bar1"}, r.Instances("Bar"))

	resp := call(t, r, `{"c":"Bar","f":"__delete__","a":["bar1"]}`)
	require.JSONEq(t, `true`, string(resp["r"]))
	require.Empty(t, r.Instances("Bar"))
}

func TestIsolatedInstancesAreNotEnumerable(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"__createIsolated__","a":["private1"]}`)
	require.JSONEq(t, `"private1"`, string(resp["r"]))
	require.Empty(t, r.Instances("Bar"))

	// The instance is callable by whoever knows its id.
	resp = call(t, r, `{"c":"private1","f":"getSelection","a":[]}`)
	require.JSONEq(t, `[]`, string(resp["r"]))
}

func TestIsolatedCreationGeneratesIdWhenEmpty(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"__createIsolated__","a":[""]}`)
	var id string
	require.NoError(t, json.Unmarshal(resp["r"], &id))
	require.NotEmpty(t, id)

	resp = call(t, r, `{"c":"`+id+`","f":"getSelection","a":[]}`)
	require.JSONEq(t, `[]`, string(resp["r"]))
}

func TestConstructorOverloads(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"__createShared__","a":["stocked",[{"name":"rum","category":"spirit","country":"CU"}]]}`)
	require.JSONEq(t, `"stocked"`, string(resp["r"]))

	resp = call(t, r, `{"c":"stocked","f":"getSelection","a":[]}`)
	require.JSONEq(t, `[{"name":"rum","category":"spirit","country":"CU"}]`, string(resp["r"]))
}

func TestOverloadResolutionBySignature(t *testing.T) {
	t.Parallel()
	b := callback.New()
	t.Cleanup(b.Close)
	r := registry.New(b)
	testutil.RegisterTestClass(r)

	resp := call(t, r, `{"c":"TestClass","f":"crazy","a":[]}`)
	require.JSONEq(t, `"who is crazy?"`, string(resp["r"]))

	resp = call(t, r, `{"c":"TestClass","f":"crazy","a":["Bob"]}`)
	require.JSONEq(t, `"Bob is crazy!"`, string(resp["r"]))
}

func TestCallbackRoundTrip(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	rec := &testutil.EventRecorder{}
	require.NoError(t, r.Bridge().OnCallbackWithNotifier(rec.Sink(), func() {}))

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	resp := call(t, r, `{"c":"bar1","f":"onAdd","a":["cb-7"]}`)
	require.JSONEq(t, `null`, string(resp["r"]))

	call(t, r, `{"c":"bar1","f":"addBottle","a":["gin","spirit","UK"]}`)
	r.Bridge().Drain()

	events := rec.Events()
	require.Len(t, events, 1)
	require.Equal(t, "bar1", events[0].Context)
	require.Equal(t, "onAdd", events[0].Method)
	require.Equal(t, "cb-7", events[0].CallbackID)
	require.Len(t, events[0].Args, 1)
	require.JSONEq(t, `{"name":"gin","category":"spirit","country":"UK"}`, string(events[0].Args[0]))
}

func TestCallbackFromBackgroundGoroutine(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	rec := &testutil.EventRecorder{}
	require.NoError(t, r.Bridge().OnCallback(rec.Sink()))

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	resp := call(t, r, `{"c":"bar1","f":"prepareDrink","a":["cb-drink"]}`)
	require.JSONEq(t, `null`, string(resp["r"]))

	require.Eventually(t, func() bool {
		return rec.Len() == 1
	}, 2*time.Second, 5*time.Millisecond)

	events := rec.Events()
	require.Equal(t, "cb-drink", events[0].CallbackID)
	require.Equal(t, "prepareDrink", events[0].Method)
	require.JSONEq(t, `3`, string(events[0].Args[0]))
}

func TestUnknownContext(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"ghost","f":"x","a":[]}`)
	require.JSONEq(t, `"Could not find context: ghost"`, string(resp["e"]))
	require.NotContains(t, resp, "r")
}

func TestUnknownMethod(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	resp := call(t, r, `{"c":"Bar","f":"closingTime","a":["now"]}`)
	require.JSONEq(t, `"Could not find function: closingTime-string"`, string(resp["e"]))
	require.NotContains(t, resp, "r")
	// The argument array stays intact.
	require.JSONEq(t, `["now"]`, string(resp["a"]))
}

func TestTargetErrorSurfacesVerbatim(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	resp := call(t, r, `{"c":"bar1","f":"removeBottle","a":["whisky"]}`)
	require.JSONEq(t, `"Sorry, this bottle is not in our selection"`, string(resp["e"]))
	require.NotContains(t, resp, "r")
}

func TestMalformedEnvelopeIsAHostError(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	_, err := r.CallJSON(`{"f":"x","a":[]}`)
	require.Error(t, err)
}

func TestIntrospection(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)
	testutil.RegisterTestClass(r)

	require.Equal(t, []string{"Bar"}, r.Classes())

	members := r.MemberFunctions("Bar")
	require.ElementsMatch(t, []string{
		"addBottle-string:string:string",
		"removeBottle-string",
		"getSelection",
		"onAdd-string",
		"onRemove-string",
		"prepareDrink-string",
	}, members)

	statics := r.StaticFunctions("Bar")
	require.Contains(t, statics, "philosophy")
	require.Contains(t, statics, "__createShared__-string")
	require.Contains(t, statics, "__createShared__-string:array")
	require.Contains(t, statics, "__createIsolated__-string")
	require.Contains(t, statics, "__delete__-string")

	require.ElementsMatch(t, []string{"crazy", "crazy-string"}, r.StaticFunctions("TestClass"))
}

func TestMetaDataFromBindingDSL(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	meta := r.MetaData("Bar")
	require.Contains(t, meta, "addBottle-string:string:string")

	addBottle := meta["addBottle-string:string:string"]
	require.Equal(t, "Adds a bottle to the bar", addBottle.Description)
	require.Len(t, addBottle.Params, 3)
	require.Equal(t, "name", addBottle.Params[0].Name)
	require.False(t, addBottle.Params[0].Optional)
	require.JSONEq(t, `null`, string(addBottle.Params[0].Default))
	require.True(t, addBottle.Params[1].Optional)
	require.JSONEq(t, `"spirit"`, string(addBottle.Params[1].Default))
	require.Equal(t, "void", addBottle.Ret.Type)

	require.Contains(t, meta, "__createShared__-string")
	require.Equal(t, "string", meta["__createShared__-string"].Ret.Type)
}

func TestLastRegistrationWinsOnDuplicateKey(t *testing.T) {
	t.Parallel()
	b := callback.New()
	t.Cleanup(b.Close)
	r := registry.New(b)

	r.RegisterStaticFunction("Dup", "greet", func() string { return "first" })
	r.RegisterStaticFunction("Dup", "greet", func() string { return "second" })

	resp := call(t, r, `{"c":"Dup","f":"greet","a":[]}`)
	require.JSONEq(t, `"second"`, string(resp["r"]))
}

func TestDeletedInstanceKeepsCallbacksAlive(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	rec := &testutil.EventRecorder{}
	require.NoError(t, r.Bridge().OnCallback(rec.Sink()))

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	call(t, r, `{"c":"bar1","f":"prepareDrink","a":["cb-1"]}`)
	// Deleting the instance drops the table handles; the background
	// goroutine still owns its callback and may fire.
	call(t, r, `{"c":"Bar","f":"__delete__","a":["bar1"]}`)

	require.Eventually(t, func() bool {
		return rec.Len() == 1
	}, 2*time.Second, 5*time.Millisecond)
}

func TestChangeListenerFiresOnLifecycle(t *testing.T) {
	t.Parallel()
	r := newBarRegistry(t)

	var changes int
	r.SetChangeListener(func() { changes++ })

	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	require.Equal(t, 1, changes)
	// Idempotent re-creation does not mutate tables.
	call(t, r, `{"c":"Bar","f":"__createShared__","a":["bar1"]}`)
	require.Equal(t, 1, changes)
	call(t, r, `{"c":"Bar","f":"__delete__","a":["bar1"]}`)
	require.Equal(t, 2, changes)
}
