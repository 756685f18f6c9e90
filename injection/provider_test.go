package injection

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

// TestRegisterNilProvider 测试注册 nil Provider 被拒绝
func TestRegisterNilProvider(t *testing.T) {
	registry := NewProviderRegistry()

	err := registry.Register(nil, 500)
	var nonCallable *NonCallableProviderError
	if !errors.As(err, &nonCallable) {
		t.Fatalf("Expected NonCallableProviderError, got %T: %v", err, err)
	}

	var typed *testProvider
	err = registry.Register(typed, 500)
	if !errors.As(err, &nonCallable) {
		t.Fatalf("Expected NonCallableProviderError for a typed nil, got %T: %v", err, err)
	}
}

// TestRegisterAnyNonProvider 测试注册未实现 Provider 接口的值
func TestRegisterAnyNonProvider(t *testing.T) {
	registry := NewProviderRegistry()

	err := registry.RegisterAny("not a provider", 500)
	var nonCallable *NonCallableProviderError
	if !errors.As(err, &nonCallable) {
		t.Fatalf("Expected NonCallableProviderError, got %T: %v", err, err)
	}

	// 实现了接口的值正常注册
	if err := registry.RegisterAny(priceProvider(), 500); err != nil {
		t.Fatalf("RegisterAny with a real provider failed: %v", err)
	}
	if !registry.IsProvided(priceType) {
		t.Error("Expected the price type to be provided after RegisterAny")
	}
}

// TestRegisterMalformedDeclaration 测试畸形的产出类型声明
func TestRegisterMalformedDeclaration(t *testing.T) {
	registry := NewProviderRegistry()

	err := registry.Register(&testProvider{
		name:     "malformed",
		provides: "definitely not a type set",
	}, 500)

	var malformed *MalformedProviderError
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedProviderError, got %T: %v", err, err)
	}
	if malformed.Provider != "malformed" {
		t.Errorf("Expected the error to name the provider, got %q", malformed.Provider)
	}

	// nil 判定函数同样畸形
	var predicate func(reflect.Type) bool
	err = registry.Register(&testProvider{name: "nil-predicate", provides: predicate}, 500)
	if !errors.As(err, &malformed) {
		t.Fatalf("Expected MalformedProviderError for a nil predicate, got %T: %v", err, err)
	}
}

// TestRegisterPredicateDeclaration 测试判定函数形式的产出声明
func TestRegisterPredicateDeclaration(t *testing.T) {
	registry := NewProviderRegistry()

	registry.Register(&testProvider{
		name: "predicate",
		provides: func(typ reflect.Type) bool {
			return typ == priceType || typ == nameType
		},
	}, 500)

	if !registry.IsProvided(priceType) || !registry.IsProvided(nameType) {
		t.Error("Predicate declaration should cover both types")
	}
	if registry.IsProvided(bookType) {
		t.Error("Predicate declaration should not cover unrelated types")
	}
}

// TestRegisterMapDeclaration 测试集合（map）形式的产出声明
func TestRegisterMapDeclaration(t *testing.T) {
	registry := NewProviderRegistry()

	registry.Register(&testProvider{
		name: "map",
		provides: map[reflect.Type]bool{
			priceType: true,
			nameType:  false,
		},
	}, 500)

	if !registry.IsProvided(priceType) {
		t.Error("Expected the price type to be provided")
	}
	if registry.IsProvided(nameType) {
		t.Error("A false map entry should not declare support")
	}
}

// TestReRegisterSameName 测试同名重复注册以最后一次为准
func TestReRegisterSameName(t *testing.T) {
	registry := NewProviderRegistry()

	registry.Register(&testProvider{
		name:     "price",
		provides: []reflect.Type{priceType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return []any{&Price{Value: "old"}}, nil
		},
	}, 500)
	registry.Register(&testProvider{
		name:     "price",
		provides: []reflect.Type{priceType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return []any{&Price{Value: "new"}}, nil
		},
	}, 500)

	prov, ok := registry.providerFor(priceType)
	if !ok {
		t.Fatal("Expected a provider for the price type")
	}
	results, err := prov.Provide(context.Background(), []reflect.Type{priceType}, nil)
	if err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
	if results[0].(*Price).Value != "new" {
		t.Errorf("Expected the later registration to win, got %v", results[0])
	}

	infos := registry.Providers()
	if len(infos) != 1 {
		t.Errorf("Re-registration must not duplicate the provider, got %d entries", len(infos))
	}
}

// TestProvidersForPartition 测试类型集按优先级分派且互斥
func TestProvidersForPartition(t *testing.T) {
	registry := NewProviderRegistry()

	first := &testProvider{name: "first", provides: []reflect.Type{priceType, nameType}}
	second := &testProvider{name: "second", provides: []reflect.Type{nameType, bookType}}
	registry.Register(first, 100)
	registry.Register(second, 200)

	assignments := registry.ProvidersFor([]reflect.Type{priceType, nameType, bookType})
	if len(assignments) != 2 {
		t.Fatalf("Expected 2 assignments, got %d", len(assignments))
	}

	// 两者都声明 Name，优先级高（数值小）的一方获得
	if assignments[0].Provider.Name() != "first" {
		t.Errorf("Expected 'first' to come first, got %q", assignments[0].Provider.Name())
	}
	if !reflect.DeepEqual(assignments[0].Types, []reflect.Type{priceType, nameType}) {
		t.Errorf("Unexpected types for 'first': %v", assignments[0].Types)
	}
	if !reflect.DeepEqual(assignments[1].Types, []reflect.Type{bookType}) {
		t.Errorf("Unexpected types for 'second': %v", assignments[1].Types)
	}
}

// TestProvidersForSamePriority 测试同优先级按注册顺序识别
func TestProvidersForSamePriority(t *testing.T) {
	registry := NewProviderRegistry()

	earlier := &testProvider{name: "earlier", provides: []reflect.Type{priceType}}
	later := &testProvider{name: "later", provides: []reflect.Type{priceType}}
	registry.Register(earlier, 500)
	registry.Register(later, 500)

	prov, ok := registry.providerFor(priceType)
	if !ok {
		t.Fatal("Expected a provider for the price type")
	}
	if prov.Name() != "earlier" {
		t.Errorf("Expected the earlier registration to win at equal priority, got %q", prov.Name())
	}
}

// TestFreezeRejectsRegistration 测试冻结后的注册被拒绝
func TestFreezeRejectsRegistration(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(priceProvider(), 500)
	registry.Freeze()

	if err := registry.Register(responseProvider(), 500); err == nil {
		t.Fatal("Expected an error when registering after Freeze")
	}

	// 已注册内容不受影响
	if !registry.IsProvided(priceType) {
		t.Error("Frozen registry lost an existing registration")
	}
}

// TestProviderInfos 测试监控快照的内容与排序
func TestProviderInfos(t *testing.T) {
	registry := NewProviderRegistry()
	registry.Register(&testProvider{name: "b", provides: []reflect.Type{nameType}}, 700)
	registry.Register(&testProvider{name: "a", provides: []reflect.Type{priceType}}, 500)

	infos := registry.Providers()
	if len(infos) != 2 {
		t.Fatalf("Expected 2 infos, got %d", len(infos))
	}
	if infos[0].Name != "a" || infos[0].Priority != 500 {
		t.Errorf("Expected 'a' (500) first, got %+v", infos[0])
	}
	if len(infos[0].Provides) != 1 || infos[0].Provides[0] != priceType.String() {
		t.Errorf("Unexpected provides for 'a': %v", infos[0].Provides)
	}
}
