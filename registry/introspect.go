package registry

import "sort"

// Classes lists every class that has member functions or a constructor
// registered, sorted.
func (r *Registry) Classes() []string {
	classes := make([]string, 0, len(r.classFunctions))
	for name := range r.classFunctions {
		classes = append(classes, name)
	}
	sort.Strings(classes)
	return classes
}

// Instances lists the shared instances of a class, sorted. Isolated
// instances are private to their creator and never enumerated.
func (r *Registry) Instances(class string) []string {
	instances := make([]string, 0)
	for id, cls := range r.sharedInstances {
		if cls == class {
			instances = append(instances, id)
		}
	}
	sort.Strings(instances)
	return instances
}

// MemberFunctions lists the full lookup names (base name plus signature) of
// a class's member functions, sorted.
func (r *Registry) MemberFunctions(class string) []string {
	functions := make([]string, 0, len(r.classFunctions[class]))
	for key := range r.classFunctions[class] {
		functions = append(functions, key)
	}
	sort.Strings(functions)
	return functions
}

// StaticFunctions lists the full lookup names registered directly under the
// class name, sorted. The injected lifecycle endpoints are included: they
// are callable with the class as context like any static.
func (r *Registry) StaticFunctions(class string) []string {
	functions := make([]string, 0, len(r.functions[class]))
	for key := range r.functions[class] {
		functions = append(functions, key)
	}
	sort.Strings(functions)
	return functions
}
