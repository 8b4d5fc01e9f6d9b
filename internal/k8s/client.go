package k8s

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// Client wraps the Kubernetes client
type Client struct {
	clientset kubernetes.Interface
	namespace string
}

// NewClient creates a new Kubernetes client
// If namespace is empty, defaults to "default"
func NewClient(namespace string) (*Client, error) {
	if namespace == "" {
		namespace = "default"
	}

	config, err := getKubeConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to get kubeconfig: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return &Client{
		clientset: clientset,
		namespace: namespace,
	}, nil
}

// getKubeConfig gets the Kubernetes configuration
func getKubeConfig() (*rest.Config, error) {
	// Try in-cluster config first (when running inside Kubernetes)
	config, err := rest.InClusterConfig()
	if err == nil {
		return config, nil
	}

	// Fall back to kubeconfig file
	var kubeconfig string
	if home := homedir.HomeDir(); home != "" {
		kubeconfig = filepath.Join(home, ".kube", "config")
	}

	// Check if KUBECONFIG env var is set
	if envKubeconfig := os.Getenv("KUBECONFIG"); envKubeconfig != "" {
		kubeconfig = envKubeconfig
	}

	config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}

	return config, nil
}

// CreateIngestJob creates a Kubernetes Job that runs the email ingest
func (c *Client) CreateIngestJob(ctx context.Context, jobName string, containerImage string) error {
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      jobName,
			Namespace: c.namespace,
			Labels: map[string]string{
				"app":          "inboxai",
				"job-type":     "email-ingest",
				"triggered-by": "api",
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit:            int32Ptr(3),
			TTLSecondsAfterFinished: int32Ptr(86400),
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{
					Labels: map[string]string{
						"app":      "inboxai",
						"job-type": "email-ingest",
					},
				},
				Spec: c.buildPodSpec(containerImage),
			},
		},
	}

	_, err := c.clientset.BatchV1().Jobs(c.namespace).Create(ctx, job, metav1.CreateOptions{})
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// buildPodSpec builds the pod spec for the ingest job. The mail archive
// is a read-only PVC; Google OAuth files come from a secret volume.
func (c *Client) buildPodSpec(containerImage string) corev1.PodSpec {
	return corev1.PodSpec{
		RestartPolicy:      corev1.RestartPolicyNever,
		ServiceAccountName: "inboxai-ingest",
		Containers: []corev1.Container{
			{
				Name:  "import-emails",
				Image: containerImage,
				Command: []string{
					"/bin/sh",
					"-c",
					`set -e
echo "===== Starting Email Ingest ====="
eml_count=$(find /mail -name "*.eml" -type f 2>/dev/null | wc -l)
mbox_count=$(find /mail -name "*.mbox" -type f 2>/dev/null | wc -l)
echo "Found $eml_count EML files and $mbox_count MBOX files"
if [ "$eml_count" -gt 0 ]; then
  echo "===== Importing EML files ====="
  /app/bin/import-emails -eml /mail
fi
if [ "$mbox_count" -gt 0 ]; then
  echo "===== Importing MBOX files ====="
  find /mail -name "*.mbox" -type f | while read mbox_file; do
    echo "Processing: $mbox_file"
    /app/bin/import-emails -mbox "$mbox_file"
  done
fi
if [ "$INGEST_GMAIL" = "true" ]; then
  echo "===== Importing from Gmail ====="
  /app/bin/import-emails -gmail -days "${GMAIL_DAYS:-365}"
fi
echo "===== Email Ingest Complete ====="`,
				},
				Env: []corev1.EnvVar{
					{
						Name: "QDRANT_API_KEY",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{
									Name: "inboxai-secrets",
								},
								Key:      "qdrant-api-key",
								Optional: boolPtr(true),
							},
						},
					},
					{
						Name: "OPENAI_API_KEY",
						ValueFrom: &corev1.EnvVarSource{
							SecretKeyRef: &corev1.SecretKeySelector{
								LocalObjectReference: corev1.LocalObjectReference{
									Name: "inboxai-secrets",
								},
								Key:      "openai-api-key",
								Optional: boolPtr(true),
							},
						},
					},
					{
						Name:  "GOOGLE_CREDENTIALS_FILE",
						Value: "/secrets/google/credentials.json",
					},
					{
						Name:  "INGEST_GMAIL",
						Value: "true",
					},
				},
				VolumeMounts: []corev1.VolumeMount{
					{
						Name:      "mail-archive",
						MountPath: "/mail",
						ReadOnly:  true,
					},
					{
						Name:      "google-oauth",
						MountPath: "/secrets/google",
						ReadOnly:  true,
					},
				},
				Resources: corev1.ResourceRequirements{
					Requests: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("1Gi"),
						corev1.ResourceCPU:    resourceQuantity("500m"),
					},
					Limits: corev1.ResourceList{
						corev1.ResourceMemory: resourceQuantity("4Gi"),
						corev1.ResourceCPU:    resourceQuantity("2000m"),
					},
				},
			},
		},
		Volumes: []corev1.Volume{
			{
				Name: "mail-archive",
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: "mail-archive",
						ReadOnly:  true,
					},
				},
			},
			{
				Name: "google-oauth",
				VolumeSource: corev1.VolumeSource{
					Secret: &corev1.SecretVolumeSource{
						SecretName: "google-oauth",
						Optional:   boolPtr(true),
					},
				},
			},
		},
	}
}

// GetJobStatus gets the status of a job
func (c *Client) GetJobStatus(ctx context.Context, jobName string) (*batchv1.Job, error) {
	job, err := c.clientset.BatchV1().Jobs(c.namespace).Get(ctx, jobName, metav1.GetOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

// DeleteJob deletes a job
func (c *Client) DeleteJob(ctx context.Context, jobName string) error {
	deletePolicy := metav1.DeletePropagationForeground
	err := c.clientset.BatchV1().Jobs(c.namespace).Delete(ctx, jobName, metav1.DeleteOptions{
		PropagationPolicy: &deletePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// Helper functions

func int32Ptr(i int32) *int32 {
	return &i
}

func boolPtr(b bool) *bool {
	return &b
}

func resourceQuantity(value string) resource.Quantity {
	qty, err := resource.ParseQuantity(value)
	if err != nil {
		// Return zero quantity on error
		return resource.Quantity{}
	}
	return qty
}
