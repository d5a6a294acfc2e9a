package plugin

import (
	"cmp"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
)

// Registry 注解注册表
// 管理注解到生成器的映射，确保一个注解只绑定一个生成器
type Registry struct {
	mu sync.RWMutex

	// annotations 注解名 -> 生成器
	annotations map[string]Generator

	// generators 生成器名 -> 生成器
	generators map[string]Generator
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		annotations: make(map[string]Generator),
		generators:  make(map[string]Generator),
	}
}

// Register 注册生成器
// 如果注解已被其他生成器注册，返回错误
func (r *Registry) Register(gen Generator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := gen.Name()
	if existing, ok := r.generators[name]; ok {
		return fmt.Errorf("生成器 %q 已注册", existing.Name())
	}
	for _, ann := range gen.Annotations() {
		if existing, ok := r.annotations[ann]; ok {
			return fmt.Errorf("注解 @%s 已被生成器 %q 绑定，无法被 %q 再次绑定",
				ann, existing.Name(), name)
		}
	}

	r.generators[name] = gen
	for _, ann := range gen.Annotations() {
		r.annotations[ann] = gen
	}
	return nil
}

// MustRegister 注册生成器，失败时 panic
func (r *Registry) MustRegister(gen Generator) {
	if err := r.Register(gen); err != nil {
		panic(err)
	}
}

// GetByAnnotation 根据注解名获取生成器
func (r *Registry) GetByAnnotation(annotation string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gen, ok := r.annotations[annotation]
	return gen, ok
}

// GetByName 根据生成器名获取生成器
func (r *Registry) GetByName(name string) (Generator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gen, ok := r.generators[name]
	return gen, ok
}

// Generators 返回所有已注册的生成器，按优先级、名称排序
func (r *Registry) Generators() []Generator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := lo.Values(r.generators)
	slices.SortFunc(result, func(a, b Generator) int {
		return cmp.Or(cmp.Compare(a.Priority(), b.Priority()), cmp.Compare(a.Name(), b.Name()))
	})
	return result
}

// Annotations 返回所有已注册的注解
func (r *Registry) Annotations() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := lo.Keys(r.annotations)
	slices.Sort(result)
	return result
}

// IsRegistered 检查注解是否已注册
func (r *Registry) IsRegistered(annotation string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.annotations[annotation]
	return ok
}

// DispatchTargets 将扫描结果分发给对应的生成器
// 返回 map[生成器名] -> 该生成器需要处理的目标，同一目标对同一生成器只分发一次
func (r *Registry) DispatchTargets(result *ScanResult) map[string][]*AnnotatedTarget {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dispatch := make(map[string][]*AnnotatedTarget)
	for _, target := range result.All() {
		seen := make(map[string]bool)
		for _, ann := range target.Annotations {
			gen, ok := r.annotations[ann.Name]
			if !ok || seen[gen.Name()] {
				continue
			}
			if lo.Contains(gen.SupportedTargets(), target.Target.Kind) {
				seen[gen.Name()] = true
				dispatch[gen.Name()] = append(dispatch[gen.Name()], target)
			}
		}
	}
	return dispatch
}

// 全局注册表
var globalRegistry = NewRegistry()

// Global 返回全局注册表
func Global() *Registry {
	return globalRegistry
}

// Register 向全局注册表注册生成器
func Register(gen Generator) error {
	return globalRegistry.Register(gen)
}

// MustRegister 向全局注册表注册生成器，失败时 panic
func MustRegister(gen Generator) {
	globalRegistry.MustRegister(gen)
}
