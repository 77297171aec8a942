package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.viam.com/test"

	"go.viam.com/posematch/logging"
	"go.viam.com/posematch/pointcloud"
	"go.viam.com/posematch/poseestimator"
)

func TestFromReader(t *testing.T) {
	logger := logging.NewTestLogger(t)

	_, err := FromReader("somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader("somepath", strings.NewReader(`{"object": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "unmarshal")

	t.Run("search parameters only", func(t *testing.T) {
		conf, err := FromReader("somepath", strings.NewReader(`{"estimator": {"chains": 2, "partial_view": true}}`), logger)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, conf.Object, test.ShouldBeEmpty)
		test.That(t, conf.Estimator.Chains, test.ShouldEqual, 2)

		err = conf.Validate("config")
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, `"object" is required`)

		conf.Object, conf.Scene, conf.Viewpoint = "a.pcd", "b.pcd", "viewpoint.txt"
		test.That(t, conf.Validate("config"), test.ShouldBeNil)
	})

	conf, err := FromReader("somepath", strings.NewReader(`{
		"object": "a.pcd",
		"scene": "b.pcd",
		"light": true,
		"estimator": {"chains": 4, "n": 100, "strategy": "weighted_sum", "seed": 7}
	}`), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf, test.ShouldResemble, &Config{
		ConfigFilePath: "somepath",
		Object:         "a.pcd",
		Scene:          "b.pcd",
		Light:          true,
		Estimator: poseestimator.Config{
			Chains:   4,
			N:        100,
			Strategy: "weighted_sum",
			Seed:     7,
		},
	})
	pcdType, err := conf.PCDType()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pcdType, test.ShouldEqual, pointcloud.PCDBinary)
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  Config
		msg  string
	}{
		{"object", Config{}, `"object" is required`},
		{"scene", Config{Object: "a.pcd"}, `"scene" is required`},
		{
			"viewpoint",
			Config{Object: "a.pcd", Scene: "b.pcd", Estimator: poseestimator.Config{PartialView: true}},
			`"viewpoint" is required`,
		},
		{
			"estimator",
			Config{Object: "a.pcd", Scene: "b.pcd", Estimator: poseestimator.Config{Strategy: "median"}},
			"config.estimator",
		},
		{"output type", Config{Object: "a.pcd", Scene: "b.pcd", OutputType: "xml"}, "output_type"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate("config")
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.msg)
		})
	}
	valid := Config{Object: "a.pcd", Scene: "b.pcd"}
	test.That(t, valid.Validate("config"), test.ShouldBeNil)
}

func TestRead(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("POSEMATCH_TEST_DATA", dir)
	fn := filepath.Join(dir, "config.json")
	err := os.WriteFile(fn, []byte(`{
		"object": "${POSEMATCH_TEST_DATA}/object.pcd",
		"scene": "${POSEMATCH_TEST_DATA}/scene.pcd",
		"viewpoint": "${POSEMATCH_TEST_DATA}/viewpoint.txt",
		"mesh": "mesh.off",
		"compute_normals": true,
		"output_type": "ascii",
		"estimator": {"partial_view": true, "mesh_tolerance": 0.5}
	}`), 0o600)
	test.That(t, err, test.ShouldBeNil)

	conf, err := Read(fn, logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, conf.ConfigFilePath, test.ShouldEqual, fn)
	test.That(t, conf.Object, test.ShouldEqual, filepath.Join(dir, "object.pcd"))
	test.That(t, conf.Scene, test.ShouldEqual, filepath.Join(dir, "scene.pcd"))
	test.That(t, conf.Estimator.MeshTolerance, test.ShouldAlmostEqual, 0.5)

	pcdType, err := conf.PCDType()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pcdType, test.ShouldEqual, pointcloud.PCDAscii)

	opts := conf.FileLoadOptions()
	test.That(t, opts.ViewpointPath, test.ShouldEqual, filepath.Join(dir, "viewpoint.txt"))
	test.That(t, opts.MeshPath, test.ShouldEqual, "mesh.off")
	test.That(t, opts.ComputeNormals, test.ShouldBeTrue)
	test.That(t, opts.Light, test.ShouldBeFalse)

	_, err = Read(filepath.Join(dir, "missing.json"), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldNotBeNil)
}
